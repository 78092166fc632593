package debounce

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkDirtyBurstCollapsesIntoOneRefresh(t *testing.T) {
	var calls int64
	u := NewGuildUpdater(func(ctx context.Context, guildID uint64) {
		atomic.AddInt64(&calls, 1)
	}, 30*time.Millisecond, 5*time.Millisecond)
	defer u.Shutdown()

	for i := 0; i < 10; i++ {
		u.MarkDirty(7)
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 1
	}, 500*time.Millisecond, 5*time.Millisecond, "a burst of marks within the debounce window must collapse to one refresh")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "no extra refresh should fire once the burst settles")
}

func TestMarkDirtyDuringUpdateTriggersExactlyOneMoreRun(t *testing.T) {
	var calls int64
	started := make(chan struct{}, 4)
	u := NewGuildUpdater(func(ctx context.Context, guildID uint64) {
		atomic.AddInt64(&calls, 1)
		started <- struct{}{}
		time.Sleep(20 * time.Millisecond)
	}, 5*time.Millisecond, 1*time.Millisecond)
	defer u.Shutdown()

	u.MarkDirty(1)
	<-started // first run has begun

	u.MarkDirty(1) // arrives while update_fn is running

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 2
	}, 500*time.Millisecond, 5*time.Millisecond, "a mark during the update must trigger exactly one more run")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestForceUpdateRunsImmediatelyWithoutWaitingForDebounce(t *testing.T) {
	var calls int64
	u := NewGuildUpdater(func(ctx context.Context, guildID uint64) {
		atomic.AddInt64(&calls, 1)
	}, time.Hour, 0)
	defer u.Shutdown()

	u.ForceUpdate(3)

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestCooldownDelaysConsecutiveForceUpdates(t *testing.T) {
	var timestamps []time.Time
	u := NewGuildUpdater(func(ctx context.Context, guildID uint64) {
		timestamps = append(timestamps, time.Now())
	}, 0, 40*time.Millisecond)
	defer u.Shutdown()

	u.ForceUpdate(9)
	u.ForceUpdate(9)

	require.Len(t, timestamps, 2)
	assert.GreaterOrEqual(t, timestamps[1].Sub(timestamps[0]), 35*time.Millisecond)
}

func TestDifferentGuildsAreIndependent(t *testing.T) {
	calls := map[uint64]*int64{1: new(int64), 2: new(int64)}

	u := NewGuildUpdater(func(ctx context.Context, guildID uint64) {
		atomic.AddInt64(calls[guildID], 1)
	}, 10*time.Millisecond, 0)
	defer u.Shutdown()

	u.MarkDirty(1)
	u.MarkDirty(2)

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(calls[1]) == 1 && atomic.LoadInt64(calls[2]) == 1
	}, 500*time.Millisecond, 5*time.Millisecond)
}
