package artefacts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/dmwcoord/pkg/store"
)

func TestXPLevelRoundTripForFirstTwoHundredLevels(t *testing.T) {
	for level := 0; level <= 200; level++ {
		xp := XPNeededForLevel(level)
		got := CalculateLevelFromXP(xp)
		assert.Equal(t, level, got, "level %d: XP %d must invert back to the same level", level, xp)

		if xp > 0 {
			assert.Equal(t, level-1, CalculateLevelFromXP(xp-1), "one XP short of level %d must resolve to level-1", level)
		}
	}
}

func TestCalculateLevelFromXPIsMonotonic(t *testing.T) {
	prev := CalculateLevelFromXP(0)
	for xp := uint64(1); xp < 200000; xp += 137 {
		level := CalculateLevelFromXP(xp)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestMemberlistThresholdAndLabel(t *testing.T) {
	assert.Equal(t, 1, MemberlistThreshold(0))
	assert.Equal(t, 1, MemberlistThreshold(-3))
	assert.Equal(t, 4, MemberlistThreshold(4))

	assert.Equal(t, "1+", MemberlistTargetLabel(0))
	assert.Equal(t, "5", MemberlistTargetLabel(5))
}

func TestComputeQualifiedSlotUsersIntersectsAndFiltersByThreshold(t *testing.T) {
	dayUsers := map[string]map[uint64]bool{
		"Friday":   {1: true, 2: true, 3: true},
		"Saturday": {4: true},
	}
	timeUsers := map[string]map[uint64]bool{
		"20:00": {1: true, 2: true},
		"21:00": {3: true},
	}

	slots, allUsers := ComputeQualifiedSlotUsers(
		[]string{"Friday", "Saturday"}, []string{"20:00", "21:00"},
		dayUsers, timeUsers, 2,
	)

	assert.Len(t, slots, 1, "only Friday+20:00 reaches the threshold of 2")
	assert.Equal(t, "Friday", slots[0].Day)
	assert.Equal(t, "20:00", slots[0].Time)
	assert.Equal(t, []uint64{1, 2}, slots[0].Users)
	assert.True(t, allUsers[1])
	assert.True(t, allUsers[2])
	assert.False(t, allUsers[3], "user 3's only slot, Friday+21:00, has one voter, below the threshold of 2")
}

func TestNormalizeListDedupesAndTrims(t *testing.T) {
	got := NormalizeList(" Friday , Friday; Saturday\nSunday ", 25)
	assert.Equal(t, []string{"Friday", "Saturday", "Sunday"}, got)
}

func TestNormalizeListCapsAtMaxItems(t *testing.T) {
	got := NormalizeList("a,b,c,d", 2)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestShortListTruncatesWithSuffix(t *testing.T) {
	lines := make([]string, 5)
	for i := range lines {
		lines[i] = "line"
	}
	got := ShortList(lines, 3)
	assert.Equal(t, "line\nline\nline\n... +2 more", got)
}

func TestShortListEmptyReturnsDash(t *testing.T) {
	assert.Equal(t, "-", ShortList(nil, 10))
}

func TestCompleteVotersIntersectsDayAndTimeUnions(t *testing.T) {
	dayUsers := map[string]map[uint64]bool{
		"2026-02-13 (Fr)": {100: true, 200: true},
		"2026-02-14 (Sa)": {300: true},
	}
	timeUsers := map[string]map[uint64]bool{
		"20:00": {200: true, 300: true},
		"21:00": {400: true},
	}

	got := CompleteVoters(dayUsers, timeUsers)
	assert.Equal(t, []uint64{200, 300}, got, "only users present in some day AND some time union count as complete voters")
}

func TestCompleteVotersEmptyWhenEitherSideHasNoVotes(t *testing.T) {
	assert.Empty(t, CompleteVoters(nil, map[string]map[uint64]bool{"20:00": {1: true}}))
	assert.Empty(t, CompleteVoters(map[string]map[uint64]bool{"Friday": {1: true}}, nil))
}

func TestResolveDisplayNamesPrefersStoreOverGuildFallback(t *testing.T) {
	storeUsernames := map[uint64]string{100: "Alice"}
	guild := map[uint64]string{100: "AliceNickname", 200: "Bob"}

	got := ResolveDisplayNames([]uint64{100, 200}, storeUsernames, guild, 30)
	assert.Equal(t, "• Alice\n• Bob", got)
}

func TestResolveDisplayNamesFallsBackToPlaceholderWhenUnknown(t *testing.T) {
	got := ResolveDisplayNames([]uint64{42}, nil, nil, 30)
	assert.Equal(t, "• User 42", got)
}

func TestResolveDisplayNamesEmptyReturnsDash(t *testing.T) {
	assert.Equal(t, "—", ResolveDisplayNames(nil, nil, nil, 30))
}

func TestRenderPlannerPollIncludesMinPlayersSortedCountsAndCompleteVoters(t *testing.T) {
	raid := &store.Raid{ID: 1, DisplayID: 1, GuildID: 1, Dungeon: "Manor", MinPlayers: 1}
	days := []string{"2026-02-13 (Fr)", "2026-02-14 (Sa)"}
	times := []string{"20:00", "21:00"}
	dayCounts := map[string]int{"2026-02-13 (Fr)": 2, "2026-02-14 (Sa)": 2}
	timeCounts := map[string]int{"20:00": 1, "21:00": 3}

	render := RenderPlannerPoll(1, raid, days, times, dayCounts, timeCounts,
		[]uint64{200}, map[uint64]string{200: "Rogue"}, nil)

	assert.Contains(t, render.Body, "Min Spieler pro Slot")
	assert.Contains(t, render.Body, "`1`")
	// equal day counts break the tie by lower(label): "2026-02-13" sorts before "2026-02-14".
	dayBlock := render.Body
	assert.True(t,
		indexOf(dayBlock, "2026-02-13 (Fr)") < indexOf(dayBlock, "2026-02-14 (Sa)"),
		"tied day counts must break ties by lower(label)")
	// unequal time counts sort by -count: 21:00 (3 votes) before 20:00 (1 vote).
	assert.True(t, indexOf(dayBlock, "21:00") < indexOf(dayBlock, "20:00"), "time counts must sort by -count")
	assert.Contains(t, render.Body, "Vollständig abgestimmt")
	assert.Contains(t, render.Body, "Rogue")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestRenderRaidlistNoRaidsRendersPlaceholder(t *testing.T) {
	render := RenderRaidlist(1, "Alpha", nil, time.Now())
	assert.Equal(t, "No open raids.", render.Body)
}

// TestRenderRaidlistScenarioOneQualifiedSlotAndNextRaid mirrors the
// fixture where guild 1 has a single raid with day "2026-02-13 (Fr)" and
// time "20:00", user 200 voting both: one qualified slot, and the raidlist
// embed names the upcoming raid.
func TestRenderRaidlistScenarioOneQualifiedSlotAndNextRaid(t *testing.T) {
	raid := &store.Raid{ID: 1, DisplayID: 1, GuildID: 1, PlannerChannelID: 11, Dungeon: "Manor", MinPlayers: 1}
	entries := []RaidlistEntry{
		{
			Raid:           raid,
			Qualified:      []QualifiedSlot{{Day: "2026-02-13 (Fr)", Time: "20:00", Users: []uint64{200}}},
			CompleteVoters: 1,
		},
	}
	now, err := time.ParseInLocation("2006-01-02 15:04", "2026-02-13 19:50", berlinLocation)
	assert.NoError(t, err)

	render := RenderRaidlist(1, "Alpha", entries, now)

	assert.Contains(t, render.Body, "Qualifizierte Slots `1`")
	assert.Contains(t, render.Body, "Abstimmungen `1` vollständig")
	assert.Contains(t, render.Body, "Nächster Termin 2026-02-13 (Fr) 20:00")
	assert.Contains(t, render.Body, "Zeitzone `Europe/Berlin`")
	assert.Contains(t, render.Body, "Nächster Start")
}
