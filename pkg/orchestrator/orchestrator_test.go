package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/debounce"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/platform"
	"github.com/cuemby/dmwcoord/pkg/store"
)

func newTestOrchestrator() *Orchestrator {
	cfg := config.Config{
		DebounceWindow:   50 * time.Millisecond,
		DebounceCooldown: 0,
	}
	return New(store.New(), nil, platform.NewMemoryClient(), debounce.NewSingletonTaskRegistry(), events.NewBroker(), cfg)
}

func TestSnapshotCountsRaidsByStatus(t *testing.T) {
	o := newTestOrchestrator()

	o.WithLock(func(s *store.Store) {
		s.EnsureSettings(1, "Alpha")
		open := s.CreateRaid(1, 10, 20, "Manor", 4)
		canceled := s.CreateRaid(1, 10, 20, "Crypt", 4)
		s.Raids[canceled.ID].Status = store.RaidCanceled
		s.ToggleVote(open.ID, store.KindDay, "2026-02-13", 99)
	})

	snap := o.Snapshot()
	assert.Equal(t, 1, snap.RaidsByStatus["open"])
	assert.Equal(t, 1, snap.RaidsByStatus["canceled"])
	assert.Equal(t, 0, snap.RaidsByStatus["finalized"])
	assert.Equal(t, 1, snap.OpenVotes)
	assert.Equal(t, 1, snap.Guilds)
}

func TestGuildIDsReturnsEveryTenantWithSettings(t *testing.T) {
	o := newTestOrchestrator()

	o.WithLock(func(s *store.Store) {
		s.EnsureSettings(1, "Alpha")
		s.EnsureSettings(2, "Beta")
	})

	ids := o.GuildIDs()
	require.Len(t, ids, 2)
	assert.ElementsMatch(t, []uint64{1, 2}, ids)
}

func TestCountUsersReportsPerLabelCardinality(t *testing.T) {
	m := map[string]map[uint64]bool{
		"2026-02-13": {100: true, 200: true},
		"2026-02-14": {100: true},
	}

	counts := countUsers(m)
	assert.Equal(t, 2, counts["2026-02-13"])
	assert.Equal(t, 1, counts["2026-02-14"])
}
