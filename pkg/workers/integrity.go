package workers

import (
	"context"
	"time"
)

// runIntegritySweep removes debug-cache rows orphaned by raids that no
// longer exist, once per IntegrityCleanupInterval.
func (m *Manager) runIntegritySweep(parentCtx context.Context) {
	ticker := time.NewTicker(m.cfg.IntegrityCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "integrity_sweep", m.orch.RunIntegritySweep)
		case <-parentCtx.Done():
			return
		}
	}
}
