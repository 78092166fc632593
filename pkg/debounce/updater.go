package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/dmwcoord/pkg/metrics"
)

// UpdateFunc refreshes a tenant's artefacts; called at most once per
// collapsed burst of MarkDirty calls, with any marks that arrive during the
// call itself triggering exactly one more run.
type UpdateFunc func(ctx context.Context, guildID uint64)

type guildState struct {
	dataMu     sync.Mutex
	runMu      sync.Mutex
	dirty      bool
	generation uint64
	lastRun    time.Time
	running    bool
}

// GuildUpdater collapses bursts of per-guild dirty marks into a single
// trailing-edge refresh, with a minimum cooldown between consecutive
// refreshes of the same guild.
type GuildUpdater struct {
	updateFn UpdateFunc
	debounce time.Duration
	cooldown time.Duration

	mu     sync.Mutex
	states map[uint64]*guildState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGuildUpdater constructs an updater with the given debounce window and
// minimum cooldown between refreshes of the same guild.
func NewGuildUpdater(updateFn UpdateFunc, debounceWindow, cooldown time.Duration) *GuildUpdater {
	ctx, cancel := context.WithCancel(context.Background())
	return &GuildUpdater{
		updateFn: updateFn,
		debounce: debounceWindow,
		cooldown: cooldown,
		states:   make(map[uint64]*guildState),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Shutdown cancels every pending debounce timer and waits for in-flight
// refreshes to finish.
func (u *GuildUpdater) Shutdown() {
	u.cancel()
	u.wg.Wait()
}

func (u *GuildUpdater) stateFor(guildID uint64) *guildState {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.states[guildID]
	if !ok {
		s = &guildState{}
		u.states[guildID] = s
	}
	return s
}

// MarkDirty records a pending change for the guild and, if no debounce
// timer is already running for it, starts one.
func (u *GuildUpdater) MarkDirty(guildID uint64) {
	metrics.DebounceMarksTotal.Inc()
	s := u.stateFor(guildID)

	s.dataMu.Lock()
	s.dirty = true
	s.generation++
	generation := s.generation
	alreadyRunning := s.running
	if !alreadyRunning {
		s.running = true
	}
	s.dataMu.Unlock()

	if !alreadyRunning {
		u.spawnDebounced(guildID, s, generation)
	}
}

// ForceUpdate marks the guild dirty and runs the refresh immediately,
// skipping the debounce wait but still honoring the per-guild cooldown.
func (u *GuildUpdater) ForceUpdate(guildID uint64) {
	s := u.stateFor(guildID)

	s.dataMu.Lock()
	s.dirty = true
	s.dataMu.Unlock()

	generation, respawn := u.run(guildID, s)
	if !respawn {
		return
	}

	s.dataMu.Lock()
	alreadyRunning := s.running
	if !alreadyRunning {
		s.running = true
	}
	s.dataMu.Unlock()

	if !alreadyRunning {
		u.spawnDebounced(guildID, s, generation)
	}
}

// spawnDebounced runs the debounce-wait / run loop for one guild on its own
// goroutine. A generation mismatch observed after waking just re-enters the
// wait without creating a new goroutine, since this loop already is the
// "respawned" task the original implementation would have created.
func (u *GuildUpdater) spawnDebounced(guildID uint64, s *guildState, generation uint64) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		gen := generation
		for {
			select {
			case <-time.After(u.debounce):
			case <-u.ctx.Done():
				s.dataMu.Lock()
				s.running = false
				s.dataMu.Unlock()
				return
			}

			s.dataMu.Lock()
			current := s.generation
			s.dataMu.Unlock()
			if current != gen {
				gen = current
				continue
			}

			nextGen, respawn := u.run(guildID, s)
			if !respawn {
				s.dataMu.Lock()
				s.running = false
				s.dataMu.Unlock()
				return
			}
			gen = nextGen
		}
	}()
}

// run applies the cooldown, checks dirty under the guild's run lock, and
// invokes updateFn at most once. It returns the generation to resume from
// and whether the caller must keep the debounce loop alive because a mark
// arrived while updateFn was running.
func (u *GuildUpdater) run(guildID uint64, s *guildState) (uint64, bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.dataMu.Lock()
	elapsed := time.Since(s.lastRun)
	s.dataMu.Unlock()

	if elapsed < u.cooldown {
		select {
		case <-time.After(u.cooldown - elapsed):
		case <-u.ctx.Done():
			return 0, false
		}
	}

	s.dataMu.Lock()
	if !s.dirty {
		s.dataMu.Unlock()
		return 0, false
	}
	s.dirty = false
	before := s.generation
	s.dataMu.Unlock()

	metrics.DebounceRefreshesTotal.Inc()
	u.updateFn(u.ctx, guildID)

	s.dataMu.Lock()
	s.lastRun = time.Now()
	after := s.generation
	s.dataMu.Unlock()

	if after != before {
		return after, true
	}
	return 0, false
}
