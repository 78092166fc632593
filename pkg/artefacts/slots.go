// Package artefacts implements the coordination engine's artefact
// synthesiser (component C5): pure functions that turn domain-store state
// into the values the orchestrator posts — qualified slots, XP/level
// progressions, and rendered text bodies with stable payload hashes for
// no-op suppression.
package artefacts

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	slotDateISORe = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	slotDateDotRe = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})`)
	slotTimeRe    = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)
)

// berlinLocation is loaded once; a raid day/time pair that fails to parse
// (free-form weekday name with no embedded date) simply never qualifies for
// a reminder, it still counts its votes normally.
var berlinLocation = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// ParseSlotStartBerlin extracts an embedded calendar date (either
// "YYYY-MM-DD" or "DD.MM.YYYY") from dayLabel and a clock time ("HH:MM" or
// "HH.MM") from timeLabel, returning their combination in Europe/Berlin. It
// reports false when either label carries no parseable date/time, which is
// expected for purely descriptive labels like weekday names with no date.
func ParseSlotStartBerlin(dayLabel, timeLabel string) (time.Time, bool) {
	y, mo, d, ok := parseSlotDate(dayLabel)
	if !ok {
		return time.Time{}, false
	}
	h, mi, ok := parseSlotTime(timeLabel)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, h, mi, 0, 0, berlinLocation), true
}

func parseSlotDate(label string) (year, month, day int, ok bool) {
	if m := slotDateISORe.FindStringSubmatch(label); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		return year, month, day, true
	}
	if m := slotDateDotRe.FindStringSubmatch(label); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
		return year, month, day, true
	}
	return 0, 0, 0, false
}

func parseSlotTime(label string) (hour, minute int, ok bool) {
	m := slotTimeRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// MemberlistThreshold returns the minimum vote count a (day, time) pair
// needs to qualify as a slot. A non-positive MinPlayers still requires at
// least one voter.
func MemberlistThreshold(minPlayers int) int {
	if minPlayers > 0 {
		return minPlayers
	}
	return 1
}

// MemberlistTargetLabel renders the human-facing minimum-player target.
func MemberlistTargetLabel(minPlayers int) string {
	if minPlayers > 0 {
		return strconv.Itoa(minPlayers)
	}
	return "1+"
}

// QualifiedSlot is one (day, time) pair whose overlap of voters meets the
// qualification threshold.
type QualifiedSlot struct {
	Day   string
	Time  string
	Users []uint64
}

// ComputeQualifiedSlotUsers intersects, for every (day, time) pair, the set
// of users who voted for that day with the set who voted for that time, and
// keeps the pair only if the intersection's size meets threshold. It also
// returns the union of every user appearing in any qualified slot.
func ComputeQualifiedSlotUsers(
	days, times []string,
	dayUsers, timeUsers map[string]map[uint64]bool,
	threshold int,
) (slots []QualifiedSlot, allUsers map[uint64]bool) {
	allUsers = make(map[uint64]bool)
	for _, day := range days {
		for _, t := range times {
			users := intersect(dayUsers[day], timeUsers[t])
			if len(users) < threshold {
				continue
			}
			sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
			slots = append(slots, QualifiedSlot{Day: day, Time: t, Users: users})
			for _, u := range users {
				allUsers[u] = true
			}
		}
	}
	return slots, allUsers
}

func intersect(a, b map[uint64]bool) []uint64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	out := make([]uint64, 0, len(small))
	for u := range small {
		if large[u] {
			out = append(out, u)
		}
	}
	return out
}

func unionUsers(m map[string]map[uint64]bool) map[uint64]bool {
	out := make(map[uint64]bool)
	for _, users := range m {
		for u := range users {
			out[u] = true
		}
	}
	return out
}

// CompleteVoters returns every user who voted for at least one day option
// and at least one time option: the intersection of the two unions of
// voters. This is the "vollständig abgestimmt" (fully voted) set the
// planner embed highlights separately from the per-option vote counts.
func CompleteVoters(dayUsers, timeUsers map[string]map[uint64]bool) []uint64 {
	dayVoters := unionUsers(dayUsers)
	timeVoters := unionUsers(timeUsers)

	out := make([]uint64, 0)
	for u := range dayVoters {
		if timeVoters[u] {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
