package orchestrator

import (
	"context"
	"time"

	"github.com/cuemby/dmwcoord/pkg/store"
)

// RunUsernameSync refreshes the Username field of every UserLevel row for
// guildID from the platform's current member list, skipping the call
// entirely if the guild was synced within throttle. It reports how many
// rows changed.
func (o *Orchestrator) RunUsernameSync(ctx context.Context, guildID uint64, throttle time.Duration) (int, error) {
	o.mu.Lock()
	last, synced := o.lastUsernameSyncAt[guildID]
	if synced && time.Since(last) < throttle {
		o.mu.Unlock()
		return 0, nil
	}
	o.mu.Unlock()

	members, err := o.platform.ListGuildMembers(ctx, guildID)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lastUsernameSyncAt == nil {
		o.lastUsernameSyncAt = make(map[uint64]time.Time)
	}
	o.lastUsernameSyncAt[guildID] = time.Now()

	changed := 0
	for userID, name := range members {
		row := o.store.UserLevels[store.UserLevelKey{GuildID: guildID, UserID: userID}]
		if row == nil || row.Username == name {
			continue
		}
		row.Username = name
		changed++
	}

	if changed == 0 {
		return 0, nil
	}
	return changed, o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "user_levels")
}
