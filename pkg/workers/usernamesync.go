package workers

import (
	"context"
	"time"
)

// runUsernameSync wakes up every UsernameSyncInterval and offers every known
// guild a resync; Orchestrator.RunUsernameSync itself throttles a guild to
// at most one real rescan per UsernameSyncThrottle, so a short check
// interval only costs a cheap map lookup for guilds that were synced recently.
func (m *Manager) runUsernameSync(parentCtx context.Context) {
	ticker := time.NewTicker(m.cfg.UsernameSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "username_sync", func(ctx context.Context) (int, error) {
				total := 0
				for _, guildID := range m.orch.GuildIDs() {
					n, err := m.orch.RunUsernameSync(ctx, guildID, m.cfg.UsernameSyncThrottle)
					if err != nil {
						return total, err
					}
					total += n
				}
				return total, nil
			})
		case <-parentCtx.Done():
			return
		}
	}
}
