package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/dmwcoord/pkg/artefacts"
	"github.com/cuemby/dmwcoord/pkg/store"
)

const (
	reminderAdvance     = 10 * time.Minute
	raidStartTolerance  = 60 * time.Second
	autoReminderAdvance = 2 * time.Hour
	autoReminderMinFill = 50.0
)

func slotCacheSuffix(day, t string) string {
	return artefacts.PayloadHash(strings.ToLower(strings.TrimSpace(day)) + "|" + strings.ToLower(strings.TrimSpace(t)))[:24]
}

func reminderCacheKey(raidID uint64, day, t string) string {
	return fmt.Sprintf("raidrem:%d:%s", raidID, slotCacheSuffix(day, t))
}

func raidStartCacheKey(raidID uint64, day, t string) string {
	return fmt.Sprintf("raidstart:%d:%s", raidID, slotCacheSuffix(day, t))
}

func autoReminderCacheKey(raidID uint64, day, t string) string {
	return fmt.Sprintf("autorem:%d:%s", raidID, slotCacheSuffix(day, t))
}

// RunReminderCycle is the body of the reminder/auto-reminder worker (C7): it
// walks every open raid's qualified slots once, posting a 10-minutes-out
// reminder, a starting-now message, and (2h out, under-filled) an auto-fill
// nudge, each gated by its own debug-cache key so a slot is only ever
// reminded once per kind. It reports how many messages it sent so the
// caller can skip a redundant flush on a quiet cycle.
func (o *Orchestrator) RunReminderCycle(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sent := 0
	now := time.Now()

	for _, raid := range o.store.ListOpenRaids(nil) {
		settings := o.store.EnsureSettings(raid.GuildID, "")
		if settings.ParticipantsChannelID == nil {
			continue
		}
		channelID := *settings.ParticipantsChannelID

		days, times := o.store.ListRaidOptions(raid.ID)
		dayUsers, timeUsers := o.store.VoteUserSets(raid.ID)
		threshold := artefacts.MemberlistThreshold(raid.MinPlayers)
		qualified, _ := artefacts.ComputeQualifiedSlotUsers(days, times, dayUsers, timeUsers, threshold)

		totalSlots := len(days) * len(times)

		for _, slot := range qualified {
			start, ok := artefacts.ParseSlotStartBerlin(slot.Day, slot.Time)
			if !ok {
				continue
			}
			delta := start.Sub(now)

			switch {
			case delta >= 0 && delta <= reminderAdvance:
				if o.postSlotReminder(ctx, raid, slot, channelID, reminderCacheKey(raid.ID, slot.Day, slot.Time), CacheKindRaidReminder, "⏰ Raid-Erinnerung") {
					sent++
				}
			case delta < 0 && delta >= -raidStartTolerance:
				if o.postSlotReminder(ctx, raid, slot, channelID, raidStartCacheKey(raid.ID, slot.Day, slot.Time), CacheKindRaidStart, "🚀 Raid startet JETZT") {
					sent++
				}
			}

			if delta >= 0 && delta <= autoReminderAdvance && totalSlots > 0 {
				fillPercent := float64(len(slot.Users)) / float64(totalSlots) * 100
				if fillPercent < autoReminderMinFill {
					if o.postAutoReminder(ctx, raid, slot, channelID, fillPercent, totalSlots) {
						sent++
					}
				}
			}
		}
	}

	if sent == 0 {
		return 0, nil
	}
	return sent, o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "debug_mirror_cache")
}

func (o *Orchestrator) postSlotReminder(ctx context.Context, raid *store.Raid, slot artefacts.QualifiedSlot, channelID uint64, cacheKey, kind, label string) bool {
	if o.store.GetDebugCache(cacheKey) != nil {
		return false
	}
	mention := ""
	if raid.TempRoleCreated && raid.TempRoleID != nil {
		mention = fmt.Sprintf("\n<@&%d>", *raid.TempRoleID)
	}
	content := fmt.Sprintf("%s: **%s**\n🆔 Raid `%d`\n📅 %s\n🕒 %s%s",
		label, raid.Dungeon, raid.DisplayID, slot.Day, slot.Time, mention)

	messageID, ok := o.safeSend(ctx, channelID, content)
	if !ok {
		return false
	}
	o.store.UpsertDebugCache(cacheKey, kind, raid.GuildID, &raid.ID, messageID, artefacts.PayloadHash(content))
	return true
}

func (o *Orchestrator) postAutoReminder(ctx context.Context, raid *store.Raid, slot artefacts.QualifiedSlot, channelID uint64, fillPercent float64, totalSlots int) bool {
	cacheKey := autoReminderCacheKey(raid.ID, slot.Day, slot.Time)
	if o.store.GetDebugCache(cacheKey) != nil {
		return false
	}
	link := ""
	if raid.MessageID != nil {
		link = fmt.Sprintf("\n🔗 https://discord.com/channels/%d/%d/%d", raid.GuildID, raid.PlannerChannelID, *raid.MessageID)
	}
	content := fmt.Sprintf("📢 Noch Plätze frei!\n🎮 **%s** startet in 2 Stunden\n🆔 Raid `%d`\n📅 %s um %s\n👥 Belegt: %d/%d (%.0f%%)%s",
		raid.Dungeon, raid.DisplayID, slot.Day, slot.Time, len(slot.Users), totalSlots, fillPercent, link)

	messageID, ok := o.safeSend(ctx, channelID, content)
	if !ok {
		return false
	}
	o.store.UpsertDebugCache(cacheKey, CacheKindAutoReminder, raid.GuildID, &raid.ID, messageID, artefacts.PayloadHash(content))
	return true
}
