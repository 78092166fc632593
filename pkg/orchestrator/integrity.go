package orchestrator

import "context"

// integritySweepKinds are the cache kinds whose rows are only meaningful
// while their raid is still open; once the raid is gone (finished,
// canceled, or purged) a leftover row is either stale bookkeeping or, for
// slot_temp_role, a role that needs deleting from the platform too.
var integritySweepKinds = []string{
	CacheKindRaidReminder, CacheKindRaidStart, CacheKindAutoReminder, CacheKindSlotTempRole,
}

// RunIntegritySweep removes debug-cache rows left behind by raids that no
// longer exist, deleting the underlying role for orphaned slot_temp_role
// rows before dropping the row itself. It returns how many rows were
// removed so the caller can skip a redundant flush on a clean cycle.
func (o *Orchestrator) RunIntegritySweep(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for _, kind := range integritySweepKinds {
		kind := kind
		for _, row := range o.store.ListDebugCache(&kind, nil, nil) {
			if row.RaidID != nil {
				if _, ok := o.store.Raids[*row.RaidID]; ok {
					continue
				}
			}
			if kind == CacheKindSlotTempRole {
				o.safeDeleteRole(ctx, row.GuildID, row.MessageID)
			}
			o.store.DeleteDebugCache(row.CacheKey)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, o.persist.FlushWithRetry(ctx, o.store, persistenceRetryConfig(), "debug_mirror_cache")
}
