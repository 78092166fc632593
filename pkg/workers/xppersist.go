package workers

import (
	"context"
	"time"
)

// runXPPersist polls the dirty-level flag every xpPersistPollInterval;
// MaybePersistLevels itself decides whether LevelPersistInterval has
// actually elapsed since the last write.
func (m *Manager) runXPPersist(parentCtx context.Context) {
	ticker := time.NewTicker(xpPersistPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "xp_persist", func(ctx context.Context) (int, error) {
				if err := m.orch.MaybePersistLevels(ctx, m.cfg.LevelPersistInterval); err != nil {
					return 0, err
				}
				return 0, nil
			})
		case <-parentCtx.Done():
			return
		}
	}
}
