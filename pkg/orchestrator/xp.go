package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/dmwcoord/pkg/artefacts"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/store"
)

// AwardXP credits a user with xp in one guild and recomputes their level. A
// level-up posts a message to the participants channel, gated by the
// tenant's levelup cooldown. XP changes never flush directly: they only
// flip the dirty-level flag, which the XP-persist worker (C7) consults
// against level_persist_interval so bursts of chat activity coalesce into
// one write.
func (o *Orchestrator) AwardXP(ctx context.Context, guildID, userID uint64, username string, xp uint64) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "award_xp")

	o.mu.Lock()
	defer o.mu.Unlock()

	row := o.store.GetOrCreateUserLevel(guildID, userID, username)
	if username != "" {
		row.Username = username
	}
	before := row.Level
	row.XP += xp
	row.Level = uint16(artefacts.CalculateLevelFromXP(row.XP))

	o.levelStateDirty = true
	o.publish(events.EventXPAwarded, guildID, fmt.Sprintf("user %d awarded %d xp", userID, xp))

	if row.Level <= before {
		return nil
	}
	o.publish(events.EventLevelUp, guildID, fmt.Sprintf("user %d reached level %d", userID, row.Level))

	settings := o.store.EnsureSettings(guildID, "")
	if settings.ParticipantsChannelID == nil {
		return nil
	}
	cooldown := time.Duration(settings.FeatureSettings().LevelupCooldown) * time.Second
	if cooldown <= 0 {
		cooldown = o.cfg.LevelupMessageCooldown
	}
	if !o.levelupCooldownElapsed(guildID, userID, cooldown) {
		return nil
	}
	o.safeSend(ctx, *settings.ParticipantsChannelID, fmt.Sprintf("🎉 <@%d> reached level %d!", userID, row.Level))
	return nil
}

func (o *Orchestrator) levelupCooldownElapsed(guildID, userID uint64, cooldown time.Duration) bool {
	if o.lastLevelupAt == nil {
		o.lastLevelupAt = make(map[store.UserLevelKey]time.Time)
	}
	key := store.UserLevelKey{GuildID: guildID, UserID: userID}
	if last, ok := o.lastLevelupAt[key]; ok && time.Since(last) < cooldown {
		return false
	}
	o.lastLevelupAt[key] = time.Now()
	return true
}

// MaybePersistLevels flushes user_levels when level_state_dirty is set and
// at least interval has elapsed since the last persist. The flag clears
// unconditionally so a transient flush failure can't spin the caller hot;
// the next dirty mark will retry on the following tick.
func (o *Orchestrator) MaybePersistLevels(ctx context.Context, interval time.Duration) error {
	o.mu.Lock()
	due := o.levelStateDirty && time.Since(o.lastLevelPersist) >= interval
	if !due {
		o.mu.Unlock()
		return nil
	}
	o.levelStateDirty = false
	o.lastLevelPersist = time.Now()
	err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "user_levels")
	o.mu.Unlock()
	return err
}
