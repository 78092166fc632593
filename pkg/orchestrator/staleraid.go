package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/dmwcoord/pkg/store"
)

// GuildIDs returns every tenant the store currently has settings for, used
// by the username-sync worker (C7) to fan a single check interval out across
// every guild.
func (o *Orchestrator) GuildIDs() []uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]uint64, 0, len(o.store.Settings))
	for id := range o.store.Settings {
		ids = append(ids, id)
	}
	return ids
}

// RunStaleRaidSweep cancels every open raid whose CreatedAt is older than
// maxAge, across every tenant. It reuses CancelRaid's handler for each raid
// in turn rather than duplicating its artefact teardown and cascade logic,
// so a stale raid closes exactly the way an operator-triggered cancel would.
func (o *Orchestrator) RunStaleRaidSweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	o.mu.Lock()
	var stale []uint64
	for id, raid := range o.store.Raids {
		if raid.Status == store.RaidOpen && raid.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	o.mu.Unlock()

	canceled := 0
	for _, raidID := range stale {
		if err := o.CancelRaid(ctx, raidID, "abandoned: no activity before the maximum raid age"); err != nil {
			return canceled, fmt.Errorf("orchestrator: stale raid sweep: raid %d: %w", raidID, err)
		}
		canceled++
	}
	return canceled, nil
}
