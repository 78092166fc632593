package workers

import (
	"context"
	"time"
)

// runReminder drives the combined reminder / raid-start / auto-reminder
// cycle: the original runs these as one loop since they all walk the same
// qualified-slot set.
func (m *Manager) runReminder(parentCtx context.Context) {
	ticker := time.NewTicker(m.cfg.ReminderWorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "reminder", m.orch.RunReminderCycle)
		case <-parentCtx.Done():
			return
		}
	}
}
