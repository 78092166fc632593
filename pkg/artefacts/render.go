package artefacts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/dmwcoord/pkg/store"
)

// Render is a pure text artefact ready to post, with a stable hash the
// orchestrator can compare against the debug-mirror cache before posting.
type Render struct {
	GuildID     uint64
	Title       string
	Body        string
	PayloadHash string
}

func jumpLink(guildID, channelID uint64, messageID *uint64) string {
	if messageID == nil {
		return "`(no link yet)`"
	}
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", guildID, channelID, *messageID)
}

// RaidlistEntry is one open raid's precomputed slot/vote summary for the
// raidlist embed. The orchestrator supplies Qualified and CompleteVoters
// since computing them needs a store read this package doesn't have.
type RaidlistEntry struct {
	Raid           *store.Raid
	Qualified      []QualifiedSlot
	CompleteVoters int
}

// raidlistTimezoneName is the fixed display timezone for every tenant, per
// the "always Europe/Berlin" decision carried through this package.
const raidlistTimezoneName = "Europe/Berlin"

type slotStart struct {
	at   time.Time
	day  string
	time string
}

// RenderRaidlist builds the open-raids overview body for a guild: per raid,
// the qualified-slot count, complete-voter count, timezone, and next slot
// (absolute + relative), plus a tenant-wide summary field with the total
// raid/slot counts and the globally-next raid start.
func RenderRaidlist(guildID uint64, guildName string, entries []RaidlistEntry, now time.Time) Render {
	title := fmt.Sprintf("📌 Open raids for %s", guildName)

	if len(entries) == 0 {
		body := "No open raids."
		return Render{GuildID: guildID, Title: title, Body: body, PayloadHash: PayloadHash(title + "\n" + body)}
	}

	lines := make([]string, 0, len(entries))
	totalQualifiedSlots := 0
	var globalNextStart time.Time
	globalNextLabel := "—"

	for i, e := range entries {
		if i >= 25 {
			break
		}
		raid := e.Raid
		jump := jumpLink(guildID, raid.PlannerChannelID, raid.MessageID)
		target := MemberlistTargetLabel(raid.MinPlayers)

		starts := make([]slotStart, 0, len(e.Qualified))
		for _, slot := range e.Qualified {
			at, ok := ParseSlotStartBerlin(slot.Day, slot.Time)
			if !ok {
				continue
			}
			starts = append(starts, slotStart{at: at, day: slot.Day, time: slot.Time})
		}
		sort.Slice(starts, func(a, b int) bool { return starts[a].at.Before(starts[b].at) })

		nextSlotText := "—"
		if len(starts) > 0 {
			chosen := starts[0]
			for _, s := range starts {
				if !s.at.Before(now) {
					chosen = s
					break
				}
			}
			nextSlotText = fmt.Sprintf("%s %s — %s (%s)", chosen.day, chosen.time,
				chosen.at.Format("2006-01-02 15:04 MST"), formatRelativeDuration(chosen.at.Sub(now)))

			if globalNextStart.IsZero() || (!chosen.at.Before(now) && (globalNextStart.Before(now) || chosen.at.Before(globalNextStart))) {
				globalNextStart = chosen.at
				globalNextLabel = fmt.Sprintf("Raid `%d` %s %s", raid.DisplayID, chosen.day, chosen.time)
			}
		}

		totalQualifiedSlots += len(e.Qualified)

		lines = append(lines, fmt.Sprintf(
			"• **%s** | 🆔 `%d` | 👥 Min `%s` | Qualifizierte Slots `%d` | Abstimmungen `%d` vollständig | Zeitzone `%s`\n  Nächster Termin %s\n  ↳ %s",
			raid.Dungeon, raid.DisplayID, target, len(e.Qualified), e.CompleteVoters, raidlistTimezoneName, nextSlotText, jump,
		))
	}

	summary := fmt.Sprintf("📊 Statistik: Raids `%d` | Slots `%d` | Zone `%s`", len(entries), totalQualifiedSlots, raidlistTimezoneName)
	if !globalNextStart.IsZero() {
		summary += fmt.Sprintf(" | 🕐 Nächster Start: %s", globalNextLabel)
	}

	body := strings.Join(lines, "\n") + "\n\n" + summary
	return Render{GuildID: guildID, Title: title, Body: body, PayloadHash: PayloadHash(title + "\n" + body)}
}

// formatRelativeDuration renders d as a coarse "in Xh"/"Xm ago" label,
// the plain-text stand-in for Discord's <t:...:R> relative timestamp markup.
func formatRelativeDuration(d time.Duration) string {
	future := d >= 0
	if !future {
		d = -d
	}
	var value float64
	var unit string
	switch {
	case d >= 24*time.Hour:
		value, unit = d.Hours()/24, "d"
	case d >= time.Hour:
		value, unit = d.Hours(), "h"
	case d >= time.Minute:
		value, unit = d.Minutes(), "m"
	default:
		value, unit = d.Seconds(), "s"
	}
	if future {
		return fmt.Sprintf("in %.0f%s", value, unit)
	}
	return fmt.Sprintf("%.0f%s ago", value, unit)
}

// sortedCountLines renders labels as "• **label** — `count`" lines sorted by
// (-count, lower(label)), matching the planner embed's vote ordering.
func sortedCountLines(labels []string, counts map[string]int) string {
	type row struct {
		label string
		count int
	}
	rows := make([]row, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, row{label: l, count: counts[l]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return strings.ToLower(rows[i].label) < strings.ToLower(rows[j].label)
	})
	if len(rows) == 0 {
		return "—"
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("• **%s** — `%d`", r.label, r.count)
	}
	return strings.Join(lines, "\n")
}

// RenderPlannerPoll builds the day/time vote-count body for a raid planner
// post: min-players, per-day and per-time vote counts sorted by
// (-count, lower(label)), and the list of users who voted both a day and a
// time option, rendered as display names from the C1 username store with a
// live guild-member fallback.
func RenderPlannerPoll(
	guildID uint64,
	raid *store.Raid,
	days, times []string,
	dayCounts, timeCounts map[string]int,
	completeVoterIDs []uint64,
	storeUsernames, guildMembers map[uint64]string,
) Render {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — 🆔 `%d`\n\n", raid.Dungeon, raid.DisplayID)
	fmt.Fprintf(&b, "**Min Spieler pro Slot**: `%d`\n\n", raid.MinPlayers)
	b.WriteString("**📅 Tage Votes**\n")
	b.WriteString(sortedCountLines(days, dayCounts))
	b.WriteString("\n\n**🕒 Uhrzeiten Votes**\n")
	b.WriteString(sortedCountLines(times, timeCounts))
	b.WriteString("\n\n**✅ Vollständig abgestimmt (Tag + Zeit)**\n")
	b.WriteString(ResolveDisplayNames(completeVoterIDs, storeUsernames, guildMembers, 30))

	title := fmt.Sprintf("🗳️ Plan your raid: %s", raid.Dungeon)
	body := b.String()
	return Render{GuildID: guildID, Title: title, Body: body, PayloadHash: PayloadHash(title + "\n" + body)}
}

// RenderParticipants builds the qualified-slots participant list body.
func RenderParticipants(guildID uint64, raid *store.Raid, qualified []QualifiedSlot) Render {
	if len(qualified) == 0 {
		title := fmt.Sprintf("👥 Participants: %s", raid.Dungeon)
		body := "No slot has reached the minimum player count yet."
		return Render{GuildID: guildID, Title: title, Body: body, PayloadHash: PayloadHash(title + "\n" + body)}
	}

	lines := make([]string, 0, len(qualified))
	for _, slot := range qualified {
		mentions := make([]string, len(slot.Users))
		for i, u := range slot.Users {
			mentions[i] = fmt.Sprintf("<@%d>", u)
		}
		lines = append(lines, fmt.Sprintf("**%s %s** (%d): %s", slot.Day, slot.Time, len(slot.Users), ShortList(mentions, 50)))
	}
	title := fmt.Sprintf("👥 Participants: %s", raid.Dungeon)
	body := strings.Join(lines, "\n")
	return Render{GuildID: guildID, Title: title, Body: body, PayloadHash: PayloadHash(title + "\n" + body)}
}

// RenderRaidCalendar builds the raid calendar message: one line per slot
// passed in, in the given order, with its confirmed-user count. It applies
// no date window and draws no day grid. Gated by
// GuildSettings.FeatureSettings().RaidCalendarEnabled at the call site.
func RenderRaidCalendar(guildID uint64, guildName string, slots []QualifiedSlot) Render {
	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		lines = append(lines, fmt.Sprintf("• %s %s — %d confirmed", slot.Day, slot.Time, len(slot.Users)))
	}
	body := "No qualified slots."
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	title := fmt.Sprintf("📅 Raid calendar for %s", guildName)
	return Render{GuildID: guildID, Title: title, Body: body, PayloadHash: PayloadHash(title + "\n" + body)}
}

// RenderRemoteTargetResolution formats the outcome of resolving a remote
// admin command's guild reference, for display back to the operator.
func RenderRemoteTargetResolution(rawValue string, result store.ResolvedTarget) string {
	switch result.Reason {
	case store.ResolveOK:
		return fmt.Sprintf("Resolved %q to guild `%d`.", rawValue, result.GuildID)
	case store.ResolveMissing:
		return "Provide a guild id or name."
	case store.ResolveAmbiguous:
		return fmt.Sprintf("%q matches more than one guild; use the exact guild id.", rawValue)
	case store.ResolveNotFound:
		return fmt.Sprintf("No guild matches %q.", rawValue)
	default:
		return fmt.Sprintf("Could not resolve %q.", rawValue)
	}
}
