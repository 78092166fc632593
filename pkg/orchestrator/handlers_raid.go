package orchestrator

import (
	"context"
	"fmt"

	"github.com/cuemby/dmwcoord/pkg/artefacts"
	"github.com/cuemby/dmwcoord/pkg/coreerr"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/store"
)

func plannerCacheKey(raidID uint64) string      { return fmt.Sprintf("planner:%d", raidID) }
func participantsCacheKey(raidID uint64) string { return fmt.Sprintf("participants:%d", raidID) }
func roleCacheKey(raidID uint64) string         { return fmt.Sprintf("role:%d", raidID) }

// CreateRaid validates the tenant has a planner channel and an active
// dungeon, inserts the raid and its day/time options, and posts the initial
// planner poll.
func (o *Orchestrator) CreateRaid(ctx context.Context, guildID, creatorID uint64, dungeonName string, minPlayers int, days, times []string) (*store.Raid, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "create_raid")

	o.mu.Lock()
	defer o.mu.Unlock()

	settings := o.store.EnsureSettings(guildID, "")
	if settings.PlannerChannelID == nil {
		return nil, fmt.Errorf("planner channel not configured: %w", coreerr.ErrPreconditionFailed)
	}
	dungeon := o.store.GetActiveDungeonByName(dungeonName)
	if dungeon == nil {
		return nil, fmt.Errorf("dungeon %q is not active: %w", dungeonName, coreerr.ErrPreconditionFailed)
	}
	if len(days) == 0 || len(times) == 0 {
		return nil, fmt.Errorf("at least one day and one time option are required: %w", coreerr.ErrValidation)
	}
	if minPlayers <= 0 {
		minPlayers = settings.DefaultMinPlayers
	}

	raid := o.store.CreateRaid(guildID, *settings.PlannerChannelID, creatorID, dungeon.Name, minPlayers)
	o.store.AddRaidOptions(raid.ID, days, times)

	o.recomputeRaidArtefacts(ctx, raid)
	o.publish(events.EventRaidCreated, guildID, fmt.Sprintf("raid %d created", raid.DisplayID))
	o.updater.MarkDirty(guildID)

	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(),
		"raids", "raid_options", "raid_posted_slots", "debug_mirror_cache"); err != nil {
		return raid, err
	}
	return raid, nil
}

// ToggleVote flips one user's vote for one day or time option of an open
// raid, then recomputes every artefact the vote could have affected: the
// planner poll counts, the qualified-slot participant list, temp-role
// membership, and the posted-slot bookkeeping the reminder worker reads.
func (o *Orchestrator) ToggleVote(ctx context.Context, raidID uint64, kind store.OptionKind, optionLabel string, userID uint64) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "toggle_vote")

	o.mu.Lock()
	defer o.mu.Unlock()

	raid, ok := o.store.Raids[raidID]
	if !ok || raid.Status != store.RaidOpen {
		return fmt.Errorf("raid %d is not open: %w", raidID, coreerr.ErrPreconditionFailed)
	}

	o.store.ToggleVote(raidID, kind, optionLabel, userID)
	o.publish(events.EventVoteToggled, raid.GuildID, fmt.Sprintf("vote toggled on raid %d", raid.DisplayID))

	o.recomputeRaidArtefacts(ctx, raid)

	return o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(),
		"raid_votes", "raid_posted_slots", "raids", "debug_mirror_cache")
}

// FinishRaid transitions open -> finalized: only the creator may call it. It
// snapshots attendance for every user who ended up in a qualified slot, then
// cascade-deletes the raid's planning state.
func (o *Orchestrator) FinishRaid(ctx context.Context, raidID, callerUserID uint64) (int, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "finish_raid")

	o.mu.Lock()
	defer o.mu.Unlock()

	raid, ok := o.store.Raids[raidID]
	if !ok || raid.Status != store.RaidOpen {
		return 0, fmt.Errorf("raid %d is not open: %w", raidID, coreerr.ErrPreconditionFailed)
	}
	if raid.CreatorID != callerUserID {
		return 0, fmt.Errorf("only the creator may finish raid %d: %w", raidID, coreerr.ErrPreconditionFailed)
	}

	days, times := o.store.ListRaidOptions(raidID)
	dayUsers, timeUsers := o.store.VoteUserSets(raidID)
	_, allUsers := artefacts.ComputeQualifiedSlotUsers(days, times, dayUsers, timeUsers, artefacts.MemberlistThreshold(raid.MinPlayers))
	inserted := o.store.CreateAttendanceSnapshot(raid.GuildID, raid.DisplayID, raid.Dungeon, allUsers)

	o.closeRaidArtefacts(ctx, raid, "abgeschlossen")

	guildID := raid.GuildID
	displayID := raid.DisplayID
	o.store.DeleteRaidCascade(raidID)
	o.publish(events.EventRaidFinished, guildID, fmt.Sprintf("raid %d finished, %d attendees snapshotted", displayID, inserted))
	o.updater.MarkDirty(guildID)

	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(),
		"raids", "raid_options", "raid_votes", "raid_posted_slots", "raid_attendance", "debug_mirror_cache"); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// CancelRaid transitions open -> canceled without an attendance snapshot.
func (o *Orchestrator) CancelRaid(ctx context.Context, raidID uint64, reason string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "cancel_raid")

	o.mu.Lock()
	defer o.mu.Unlock()

	raid, ok := o.store.Raids[raidID]
	if !ok || raid.Status != store.RaidOpen {
		return fmt.Errorf("raid %d is not open: %w", raidID, coreerr.ErrPreconditionFailed)
	}

	o.closeRaidArtefacts(ctx, raid, reason)

	guildID := raid.GuildID
	displayID := raid.DisplayID
	o.store.DeleteRaidCascade(raidID)
	o.publish(events.EventRaidCanceled, guildID, fmt.Sprintf("raid %d canceled: %s", displayID, reason))
	o.updater.MarkDirty(guildID)

	return o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(),
		"raids", "raid_options", "raid_votes", "raid_posted_slots", "debug_mirror_cache")
}

// CancelAllRaidsForGuild cancels every open raid of a tenant in one
// handler invocation, used by the purge and remote-admin command paths.
func (o *Orchestrator) CancelAllRaidsForGuild(ctx context.Context, guildID uint64, reason string) (int, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "cancel_all_raids")

	o.mu.Lock()
	defer o.mu.Unlock()

	raids := o.store.ListOpenRaids(&guildID)
	for _, raid := range raids {
		o.closeRaidArtefacts(ctx, raid, reason)
	}
	count := o.store.CancelOpenRaidsForGuild(guildID)
	o.publish(events.EventRaidCanceled, guildID, fmt.Sprintf("%d raids canceled: %s", count, reason))
	o.updater.MarkDirty(guildID)

	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(),
		"raids", "raid_options", "raid_votes", "raid_posted_slots", "debug_mirror_cache"); err != nil {
		return count, err
	}
	return count, nil
}

// MarkAttendance updates one snapshotted attendance row, used by moderators
// correcting a finished raid's roster.
func (o *Orchestrator) MarkAttendance(ctx context.Context, guildID, raidDisplayID, userID uint64, status store.AttendanceStatus, markedBy uint64) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "mark_attendance")

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.store.MarkAttendance(guildID, raidDisplayID, userID, status, markedBy) {
		return fmt.Errorf("no attendance row for guild %d raid %d user %d: %w", guildID, raidDisplayID, userID, coreerr.ErrPreconditionFailed)
	}
	return o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "raid_attendance")
}

// recomputeRaidArtefacts re-renders the planner poll and the qualified-slot
// participant list, reconciles the posted-slot bookkeeping, and keeps the
// raid's temp role membership in sync with whoever currently qualifies.
// Callers must already hold the state lock.
func (o *Orchestrator) recomputeRaidArtefacts(ctx context.Context, raid *store.Raid) {
	days, times := o.store.ListRaidOptions(raid.ID)
	dayUsers, timeUsers := o.store.VoteUserSets(raid.ID)

	completeVoterIDs := artefacts.CompleteVoters(dayUsers, timeUsers)
	pollRender := artefacts.RenderPlannerPoll(raid.GuildID, raid, days, times, countUsers(dayUsers), countUsers(timeUsers),
		completeVoterIDs, o.usernamesFor(raid.GuildID, completeVoterIDs), o.safeListGuildMembers(ctx, raid.GuildID))
	key := plannerCacheKey(raid.ID)
	if o.publishArtefact(ctx, key, CacheKindBotMessage, raid.GuildID, &raid.ID, raid.PlannerChannelID, pollRender) {
		if row := o.store.GetDebugCache(key); row != nil {
			messageID := row.MessageID
			raid.MessageID = &messageID
		}
	}

	threshold := artefacts.MemberlistThreshold(raid.MinPlayers)
	qualified, allUsers := artefacts.ComputeQualifiedSlotUsers(days, times, dayUsers, timeUsers, threshold)

	settings := o.store.EnsureSettings(raid.GuildID, "")
	if settings.ParticipantsChannelID != nil {
		participantsRender := artefacts.RenderParticipants(raid.GuildID, raid, qualified)
		o.publishArtefact(ctx, participantsCacheKey(raid.ID), CacheKindBotMessage, raid.GuildID, &raid.ID, *settings.ParticipantsChannelID, participantsRender)
	}

	o.reconcilePostedSlots(raid, qualified, settings)
	o.reconcileTempRole(ctx, raid, allUsers)

	if len(qualified) > 0 {
		raid.ParticipantsPosted = true
	}
}

// usernamesFor looks up the C1-tracked username for each of userIDs,
// omitting any id with no row or a blank username so the caller's guild
// fallback can take over for it.
func (o *Orchestrator) usernamesFor(guildID uint64, userIDs []uint64) map[uint64]string {
	out := make(map[uint64]string, len(userIDs))
	for _, id := range userIDs {
		if row := o.store.UserLevels[store.UserLevelKey{GuildID: guildID, UserID: id}]; row != nil && row.Username != "" {
			out[id] = row.Username
		}
	}
	return out
}

func countUsers(m map[string]map[uint64]bool) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = len(v)
	}
	return out
}

// reconcilePostedSlots keeps store.RaidPostedSlots in sync with the current
// set of qualified (day, time) pairs: rows for pairs that still qualify
// point at the participants message; rows for pairs that no longer do are
// removed so the reminder worker (C7) stops tracking them.
func (o *Orchestrator) reconcilePostedSlots(raid *store.Raid, qualified []artefacts.QualifiedSlot, settings *store.GuildSettings) {
	if settings.ParticipantsChannelID == nil {
		return
	}
	var participantsMsgID uint64
	if row := o.store.GetDebugCache(participantsCacheKey(raid.ID)); row != nil {
		participantsMsgID = row.MessageID
	}

	qualifiedSet := make(map[[2]string]bool, len(qualified))
	for _, slot := range qualified {
		qualifiedSet[[2]string{slot.Day, slot.Time}] = true
		o.store.UpsertPostedSlot(raid.ID, slot.Day, slot.Time, *settings.ParticipantsChannelID, participantsMsgID)
	}

	for key, row := range o.store.ListPostedSlots(raid.ID) {
		if qualifiedSet[key] {
			continue
		}
		o.store.DeletePostedSlot(row.ID)
	}
}

// reconcileTempRole lazily creates the raid's shared temp role on first
// qualification and assigns it to every currently-qualified user.
func (o *Orchestrator) reconcileTempRole(ctx context.Context, raid *store.Raid, allUsers map[uint64]bool) {
	if len(allUsers) == 0 {
		return
	}
	if !raid.TempRoleCreated {
		roleID, ok := o.safeCreateRole(ctx, raid.GuildID, fmt.Sprintf("DMW Raid %d", raid.DisplayID))
		if !ok {
			return
		}
		raid.TempRoleID = &roleID
		raid.TempRoleCreated = true
		o.store.UpsertDebugCache(roleCacheKey(raid.ID), CacheKindSlotTempRole, raid.GuildID, &raid.ID, roleID, "")
	}
	for userID := range allUsers {
		o.safeAssignRole(ctx, raid.GuildID, userID, *raid.TempRoleID)
	}
}

// closeRaidArtefacts tears down every live message and role a raid
// accumulated: the planner message is edited to its closed title rather
// than deleted (per the "closed" planner-message state), every posted-slot
// message and the temp role are removed outright.
func (o *Orchestrator) closeRaidArtefacts(ctx context.Context, raid *store.Raid, reason string) {
	key := plannerCacheKey(raid.ID)
	if row := o.store.GetDebugCache(key); row != nil {
		o.safeEdit(ctx, raid.PlannerChannelID, row.MessageID, fmt.Sprintf("Raid geschlossen: %s", reason))
		o.store.DeleteDebugCache(key)
	}

	settings := o.store.EnsureSettings(raid.GuildID, "")
	if settings.ParticipantsChannelID != nil {
		o.retireArtefact(ctx, participantsCacheKey(raid.ID), *settings.ParticipantsChannelID)
	}

	for _, slot := range o.store.ListPostedSlots(raid.ID) {
		if slot.ChannelID != nil && slot.MessageID != nil {
			o.safeDelete(ctx, *slot.ChannelID, *slot.MessageID)
		}
	}

	if raid.TempRoleCreated && raid.TempRoleID != nil {
		o.safeDeleteRole(ctx, raid.GuildID, *raid.TempRoleID)
		o.store.DeleteDebugCache(roleCacheKey(raid.ID))
	}
}
