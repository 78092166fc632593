package orchestrator

import (
	"context"

	"github.com/cuemby/dmwcoord/pkg/artefacts"
	"github.com/cuemby/dmwcoord/pkg/metrics"
)

// Suspension-point wrappers. Any call into the external binding while the
// state lock is held is an explicit suspension point; these swallow
// transient transport failures and report success as a boolean so a write
// handler never has to propagate a platform error past the Orchestrator.

func (o *Orchestrator) safeSend(ctx context.Context, channelID uint64, content string) (uint64, bool) {
	msg, err := o.platform.Send(ctx, channelID, content)
	if err != nil {
		o.logger.Debug().Err(err).Uint64("channel_id", channelID).Msg("send failed")
		return 0, false
	}
	return msg.MessageID, true
}

func (o *Orchestrator) safeEdit(ctx context.Context, channelID, messageID uint64, content string) (uint64, bool) {
	msg, err := o.platform.Edit(ctx, channelID, messageID, content)
	if err != nil {
		o.logger.Debug().Err(err).Uint64("channel_id", channelID).Uint64("message_id", messageID).Msg("edit failed")
		return 0, false
	}
	return msg.MessageID, true
}

func (o *Orchestrator) safeDelete(ctx context.Context, channelID, messageID uint64) bool {
	if messageID == 0 {
		return true
	}
	if err := o.platform.Delete(ctx, channelID, messageID); err != nil {
		o.logger.Debug().Err(err).Uint64("channel_id", channelID).Uint64("message_id", messageID).Msg("delete failed")
		return false
	}
	return true
}

func (o *Orchestrator) safeCreateRole(ctx context.Context, guildID uint64, name string) (uint64, bool) {
	id, err := o.platform.CreateRole(ctx, guildID, name)
	if err != nil {
		o.logger.Debug().Err(err).Uint64("guild_id", guildID).Str("role", name).Msg("create role failed")
		return 0, false
	}
	return id, true
}

func (o *Orchestrator) safeDeleteRole(ctx context.Context, guildID, roleID uint64) bool {
	if roleID == 0 {
		return true
	}
	if err := o.platform.DeleteRole(ctx, guildID, roleID); err != nil {
		o.logger.Debug().Err(err).Uint64("guild_id", guildID).Uint64("role_id", roleID).Msg("delete role failed")
		return false
	}
	return true
}

func (o *Orchestrator) safeAssignRole(ctx context.Context, guildID, userID, roleID uint64) bool {
	if err := o.platform.AssignRole(ctx, guildID, userID, roleID); err != nil {
		o.logger.Debug().Err(err).Uint64("guild_id", guildID).Uint64("user_id", userID).Uint64("role_id", roleID).Msg("assign role failed")
		return false
	}
	return true
}

// safeListGuildMembers is the guild-fallback lookup the planner embed uses
// for any complete voter the C1 username store doesn't know yet. Like the
// other suspension-point wrappers, a transport failure degrades to an empty
// map rather than propagating past the Orchestrator.
func (o *Orchestrator) safeListGuildMembers(ctx context.Context, guildID uint64) map[uint64]string {
	members, err := o.platform.ListGuildMembers(ctx, guildID)
	if err != nil {
		o.logger.Debug().Err(err).Uint64("guild_id", guildID).Msg("list guild members failed")
		return nil
	}
	return members
}

// publishArtefact implements the artefact-cache rule: if cacheKey already
// maps to the same payload hash, nothing is posted. Otherwise it edits the
// existing message in place; if the edit fails (message deleted out from
// under it, channel gone) it posts a new one and deletes the stale one
// before updating the cache row.
func (o *Orchestrator) publishArtefact(ctx context.Context, cacheKey, kind string, guildID uint64, raidID *uint64, channelID uint64, render artefacts.Render) bool {
	existing := o.store.GetDebugCache(cacheKey)
	if existing != nil && existing.PayloadHash == render.PayloadHash {
		metrics.OrchestratorArtefactSuppressedTotal.WithLabelValues(kind).Inc()
		return true
	}

	body := render.Title + "\n\n" + render.Body

	if existing != nil {
		if messageID, ok := o.safeEdit(ctx, channelID, existing.MessageID, body); ok {
			o.store.UpsertDebugCache(cacheKey, kind, guildID, raidID, messageID, render.PayloadHash)
			return true
		}
		o.safeDelete(ctx, channelID, existing.MessageID)
	}

	messageID, ok := o.safeSend(ctx, channelID, body)
	if !ok {
		return false
	}
	o.store.UpsertDebugCache(cacheKey, kind, guildID, raidID, messageID, render.PayloadHash)
	return true
}

// retireArtefact deletes the live message behind a cache row, if any, and
// drops the row itself. Used when a slot stops qualifying or a raid closes.
func (o *Orchestrator) retireArtefact(ctx context.Context, cacheKey string, channelID uint64) {
	existing := o.store.GetDebugCache(cacheKey)
	if existing == nil {
		return
	}
	o.safeDelete(ctx, channelID, existing.MessageID)
	o.store.DeleteDebugCache(cacheKey)
}
