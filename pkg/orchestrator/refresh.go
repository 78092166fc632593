package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/dmwcoord/pkg/artefacts"
	"github.com/cuemby/dmwcoord/pkg/store"
)

func raidlistCacheKey(guildID uint64) string     { return fmt.Sprintf("raidlist:%d", guildID) }
func raidCalendarCacheKey(guildID uint64) string { return fmt.Sprintf("calendar:%d", guildID) }

// refreshGuildArtefacts is the debounce.UpdateFunc behind C4: it republishes
// the raidlist embed and, when the raid-calendar feature flag is set, the
// raid calendar message. C4 invokes this from its own goroutine outside
// any write handler, so unlike the handlers in this package it must take the
// state lock itself rather than assume the caller already holds it.
func (o *Orchestrator) refreshGuildArtefacts(ctx context.Context, guildID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	settings := o.store.Settings[guildID]
	if settings == nil || settings.RaidlistChannelID == nil {
		return
	}

	raids := o.store.ListOpenRaids(&guildID)
	entries := make([]artefacts.RaidlistEntry, 0, len(raids))
	for _, raid := range raids {
		days, times := o.store.ListRaidOptions(raid.ID)
		dayUsers, timeUsers := o.store.VoteUserSets(raid.ID)
		qualified, _ := artefacts.ComputeQualifiedSlotUsers(days, times, dayUsers, timeUsers, artefacts.MemberlistThreshold(raid.MinPlayers))
		entries = append(entries, artefacts.RaidlistEntry{
			Raid:           raid,
			Qualified:      qualified,
			CompleteVoters: len(artefacts.CompleteVoters(dayUsers, timeUsers)),
		})
	}
	render := artefacts.RenderRaidlist(guildID, settings.GuildName, entries, time.Now())
	key := raidlistCacheKey(guildID)
	if o.publishArtefact(ctx, key, CacheKindBotMessage, guildID, nil, *settings.RaidlistChannelID, render) {
		if row := o.store.GetDebugCache(key); row != nil {
			messageID := row.MessageID
			settings.RaidlistMessageID = &messageID
		}
	}

	if settings.FeatureSettings().RaidCalendarEnabled {
		o.refreshRaidCalendar(ctx, guildID, settings)
	}

	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "guild_settings", "debug_mirror_cache"); err != nil {
		o.logger.Error().Err(err).Uint64("guild_id", guildID).Msg("flush failed after raidlist refresh")
	}
}

// refreshRaidCalendar lists every open raid's qualified slots, with no date
// filter and no day grid, and republishes the list to the same channel as the
// raidlist, gated by GuildSettings.FeatureSettings().RaidCalendarEnabled.
func (o *Orchestrator) refreshRaidCalendar(ctx context.Context, guildID uint64, settings *store.GuildSettings) {
	if settings.RaidlistChannelID == nil {
		return
	}
	var allSlots []artefacts.QualifiedSlot
	for _, raid := range o.store.Raids {
		if raid.GuildID != guildID || raid.Status != store.RaidOpen {
			continue
		}
		days, times := o.store.ListRaidOptions(raid.ID)
		dayUsers, timeUsers := o.store.VoteUserSets(raid.ID)
		qualified, _ := artefacts.ComputeQualifiedSlotUsers(days, times, dayUsers, timeUsers, artefacts.MemberlistThreshold(raid.MinPlayers))
		allSlots = append(allSlots, qualified...)
	}
	render := artefacts.RenderRaidCalendar(guildID, settings.GuildName, allSlots)
	o.publishArtefact(ctx, raidCalendarCacheKey(guildID), CacheKindRaidCalendarMsg, guildID, nil, *settings.RaidlistChannelID, render)
}

// ForceRaidlistRefresh bypasses the debounce window, used by handlers that
// already know a full refresh is warranted (raidlist channel reconfigured).
func (o *Orchestrator) ForceRaidlistRefresh(guildID uint64) {
	o.updater.ForceUpdate(guildID)
}
