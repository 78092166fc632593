package orchestrator

import (
	"context"
	"fmt"

	"github.com/cuemby/dmwcoord/pkg/coreerr"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/store"
)

// EnsureSettings idempotently upserts a tenant's display name, creating a
// default settings row on first contact (guild join).
func (o *Orchestrator) EnsureSettings(ctx context.Context, guildID uint64, guildName string) (*store.GuildSettings, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "ensure_settings")

	o.mu.Lock()
	defer o.mu.Unlock()

	row := o.store.EnsureSettings(guildID, guildName)
	o.publish(events.EventGuildJoined, guildID, "settings ensured")

	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "guild_settings"); err != nil {
		o.logger.Error().Err(err).Uint64("guild_id", guildID).Msg("flush failed after ensure_settings")
		return row, err
	}
	return row, nil
}

// ConfigureChannels writes the planner/participants/raidlist channel ids for
// a tenant and forces an immediate raidlist refresh when the raidlist
// channel changed, since the old message id is now meaningless.
func (o *Orchestrator) ConfigureChannels(ctx context.Context, guildID uint64, planner, participants, raidlist *uint64) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "configure_channels")

	o.mu.Lock()
	before := o.store.EnsureSettings(guildID, "").RaidlistChannelID
	row := o.store.ConfigureChannels(guildID, planner, participants, raidlist)
	channelChanged := !uint64PtrEqual(before, raidlist)
	o.mu.Unlock()

	if channelChanged {
		o.updater.ForceUpdate(guildID)
	} else {
		o.updater.MarkDirty(guildID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = row
	return o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "guild_settings")
}

// ConfigureFeatureSettings applies a typed FeatureSettings update, repacking
// it into the stable on-disk feature_flags column.
func (o *Orchestrator) ConfigureFeatureSettings(ctx context.Context, guildID uint64, fs store.FeatureSettings) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "configure_feature_settings")

	o.mu.Lock()
	row := o.store.EnsureSettings(guildID, "")
	row.SetFeatureSettings(fs)
	o.mu.Unlock()

	o.updater.MarkDirty(guildID)

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "guild_settings")
}

// ConfigureTemplate saves or overwrites a raid-plan preset for a dungeon.
func (o *Orchestrator) ConfigureTemplate(ctx context.Context, guildID uint64, dungeonID int, name, data string) (*store.RaidTemplate, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "template_config")

	o.mu.Lock()
	defer o.mu.Unlock()

	dungeon := o.dungeonByID(dungeonID)
	if dungeon == nil {
		return nil, fmt.Errorf("dungeon %d not found: %w", dungeonID, coreerr.ErrPreconditionFailed)
	}

	row := o.store.UpsertTemplate(guildID, dungeonID, name, data)
	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "raid_templates"); err != nil {
		return row, err
	}
	return row, nil
}

func (o *Orchestrator) dungeonByID(id int) *store.Dungeon {
	for _, d := range o.store.ListActiveDungeons() {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// PurgeGuild deletes every row belonging to a tenant: raids and their
// cascade, user levels, and the settings row itself. It returns the
// before-counts so the caller can report what was removed.
func (o *Orchestrator) PurgeGuild(ctx context.Context, guildID uint64) (store.PurgeCounts, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OrchestratorHandlerDuration, "purge_guild")

	o.mu.Lock()
	defer o.mu.Unlock()

	counts := o.store.PurgeGuildData(guildID)
	o.publish(events.EventGuildPurged, guildID, "guild data purged")

	if err := o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig()); err != nil {
		return counts, err
	}
	return counts, nil
}

// ResolveRemoteTarget resolves a remote-admin guild reference under the
// state lock, since guild-name lookups read the settings table.
func (o *Orchestrator) ResolveRemoteTarget(rawValue string) store.ResolvedTarget {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.ResolveRemoteTarget(rawValue)
}

func uint64PtrEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
