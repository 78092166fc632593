package workers

import (
	"context"
	"time"
)

// runStaleRaidSweep cancels open raids created more than StaleRaidMaxAge
// ago, once per StaleRaidCheckInterval.
func (m *Manager) runStaleRaidSweep(parentCtx context.Context) {
	ticker := time.NewTicker(m.cfg.StaleRaidCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "stale_raid_sweep", func(ctx context.Context) (int, error) {
				return m.orch.RunStaleRaidSweep(ctx, m.cfg.StaleRaidMaxAge)
			})
		case <-parentCtx.Done():
			return
		}
	}
}
