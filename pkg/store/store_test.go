package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRaidAllocatesMonotonicDisplayIDsPerGuild(t *testing.T) {
	s := New()

	r1 := s.CreateRaid(100, 1, 1, "Manor", 4)
	r2 := s.CreateRaid(100, 1, 1, "Manor", 4)
	r3 := s.CreateRaid(200, 1, 1, "Manor", 4)

	assert.Equal(t, uint64(1), r1.DisplayID)
	assert.Equal(t, uint64(2), r2.DisplayID)
	assert.Equal(t, uint64(1), r3.DisplayID, "a different guild's display ids start from 1 again")
	assert.NotEqual(t, r1.ID, r2.ID, "surrogate ids are never reused")
}

func TestToggleVoteIsIdempotentAndReversible(t *testing.T) {
	s := New()
	raid := s.CreateRaid(1, 1, 1, "Manor", 4)

	s.ToggleVote(raid.ID, KindDay, "Friday", 42)
	dayUsers, _ := s.VoteUserSets(raid.ID)
	require.True(t, dayUsers["Friday"][42])
	assert.Len(t, s.RaidVotes, 1)

	s.ToggleVote(raid.ID, KindDay, "Friday", 42)
	dayUsers, _ = s.VoteUserSets(raid.ID)
	assert.False(t, dayUsers["Friday"][42])
	assert.Empty(t, s.RaidVotes, "a second toggle removes the vote and leaves no orphaned index entries")
	assert.Empty(t, s.voteIDByKey)
}

func TestDeleteRaidCascadeRemovesOptionsVotesAndSlots(t *testing.T) {
	s := New()
	raid := s.CreateRaid(1, 1, 1, "Manor", 4)
	s.AddRaidOptions(raid.ID, []string{"Friday"}, []string{"20:00"})
	s.ToggleVote(raid.ID, KindDay, "Friday", 42)
	s.UpsertPostedSlot(raid.ID, "Friday", "20:00", 555, 777)

	s.DeleteRaidCascade(raid.ID)

	assert.Empty(t, s.Raids)
	assert.Empty(t, s.RaidOptions)
	assert.Empty(t, s.RaidVotes)
	assert.Empty(t, s.voteIDByKey, "cascade delete must also drop vote index entries, not just vote rows")
	assert.Empty(t, s.RaidPostedSlots)
}

func TestCancelOpenRaidsForGuildOnlyAffectsThatGuild(t *testing.T) {
	s := New()
	s.CreateRaid(1, 1, 1, "Manor", 4)
	s.CreateRaid(1, 1, 1, "Manor", 4)
	s.CreateRaid(2, 1, 1, "Manor", 4)

	n := s.CancelOpenRaidsForGuild(1)

	assert.Equal(t, 2, n)
	assert.Len(t, s.Raids, 1)
	for _, r := range s.Raids {
		assert.Equal(t, uint64(2), r.GuildID)
	}
}

func TestPurgeGuildDataReturnsBeforeCountsAndRemovesEverything(t *testing.T) {
	s := New()
	s.EnsureSettings(1, "Alpha")
	s.CreateRaid(1, 1, 1, "Manor", 4)
	s.CreateRaid(1, 1, 1, "Manor", 4)
	s.GetOrCreateUserLevel(1, 42, "Alice")
	s.GetOrCreateUserLevel(1, 43, "Bob")

	counts := s.PurgeGuildData(1)

	assert.Equal(t, 2, counts.Raids)
	assert.Equal(t, 2, counts.UserLevels)
	assert.Equal(t, 1, counts.GuildSettings)
	assert.Empty(t, s.Raids)
	assert.Empty(t, s.UserLevels)
	assert.NotContains(t, s.Settings, uint64(1))
}

func TestCreateAttendanceSnapshotOnlyInsertsNewUsers(t *testing.T) {
	s := New()
	n1 := s.CreateAttendanceSnapshot(1, 1, "Manor", map[uint64]bool{42: true, 43: true})
	assert.Equal(t, 2, n1)

	n2 := s.CreateAttendanceSnapshot(1, 1, "Manor", map[uint64]bool{43: true, 44: true})
	assert.Equal(t, 1, n2, "user 43 was already recorded and must not be duplicated")

	rows := s.ListAttendance(1, 1)
	assert.Len(t, rows, 3)
}

func TestListAttendanceSortsByStatusThenUserID(t *testing.T) {
	s := New()
	s.CreateAttendanceSnapshot(1, 1, "Manor", map[uint64]bool{3: true, 1: true, 2: true})
	s.MarkAttendance(1, 1, 2, AttendanceAbsent, 999)

	rows := s.ListAttendance(1, 1)
	require.Len(t, rows, 3)
	assert.Equal(t, AttendanceAbsent, rows[0].Status, "absent sorts before present lexically")
	assert.Equal(t, uint64(1), rows[1].UserID)
	assert.Equal(t, uint64(3), rows[2].UserID)
}

func TestResolveRemoteTargetPrecedence(t *testing.T) {
	s := New()
	s.EnsureSettings(10, "Northern Lights")
	s.EnsureSettings(20, "Northern Lights Guild")
	s.EnsureSettings(30, "Southern Cross")

	numeric := s.ResolveRemoteTarget("12345")
	assert.Equal(t, ResolveOK, numeric.Reason)
	assert.Equal(t, uint64(12345), numeric.GuildID)

	ambiguousPartial := s.ResolveRemoteTarget("northern")
	assert.Equal(t, ResolveAmbiguous, ambiguousPartial.Reason)

	exact := s.ResolveRemoteTarget("Southern Cross")
	assert.Equal(t, ResolveOK, exact.Reason)
	assert.Equal(t, uint64(30), exact.GuildID)

	notFound := s.ResolveRemoteTarget("nonexistent")
	assert.Equal(t, ResolveNotFound, notFound.Reason)

	missing := s.ResolveRemoteTarget("   ")
	assert.Equal(t, ResolveMissing, missing.Reason)
}

func TestUpsertDebugCacheKeepsIndexesConsistentAcrossKindChange(t *testing.T) {
	s := New()
	raidID := uint64(7)

	s.UpsertDebugCache("k1", "planner", 1, &raidID, 111, "hash-a")
	assert.Len(t, s.ListDebugCache(strPtr("planner"), uint64Ptr(1), &raidID), 1)

	s.UpsertDebugCache("k1", "raidlist", 1, &raidID, 222, "hash-b")
	assert.Empty(t, s.ListDebugCache(strPtr("planner"), uint64Ptr(1), &raidID), "old kind index entry must be removed on re-key")
	rows := s.ListDebugCache(strPtr("raidlist"), uint64Ptr(1), &raidID)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(222), rows[0].MessageID)
}

func TestListDebugCacheDeterministicOrderByKind(t *testing.T) {
	s := New()
	s.UpsertDebugCache("zeta", "planner", 1, nil, 1, "h")
	s.UpsertDebugCache("alpha", "planner", 1, nil, 2, "h")
	s.UpsertDebugCache("mid", "planner", 1, nil, 3, "h")

	rows := s.ListDebugCache(strPtr("planner"), nil, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "alpha", rows[0].CacheKey)
	assert.Equal(t, "mid", rows[1].CacheKey)
	assert.Equal(t, "zeta", rows[2].CacheKey)
}

func TestRecalculateCountersRebuildsIndexesAndDisplayIDs(t *testing.T) {
	s := New()
	raid := s.CreateRaid(1, 1, 1, "Manor", 4)
	s.ToggleVote(raid.ID, KindDay, "Friday", 42)
	s.UpsertDebugCache("k1", "planner", 1, &raid.ID, 1, "h")

	// simulate a fresh load: wipe derived state, keep table rows, recompute.
	s.voteIDByKey = make(map[voteKey]uint64)
	s.cacheKeysByKind = make(map[string]map[string]bool)
	s.displayIDByGuild = make(map[uint64]uint64)
	s.nextRaidID = 1

	s.RecalculateCounters()

	next := s.CreateRaid(1, 1, 1, "Manor", 4)
	assert.Equal(t, uint64(2), next.DisplayID, "display id counter must resume after the highest existing value")

	dayUsers, _ := s.VoteUserSets(raid.ID)
	assert.True(t, dayUsers["Friday"][42], "vote index must be rebuilt from raw rows")

	rows := s.ListDebugCache(strPtr("planner"), nil, nil)
	assert.Len(t, rows, 1, "debug cache index must be rebuilt from raw rows")
}

func strPtr(s string) *string    { return &s }
func uint64Ptr(v uint64) *uint64 { return &v }
