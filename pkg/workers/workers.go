// Package workers implements the coordination engine's time-driven workers
// (component C7): a fixed set of named background loops, each started at
// most once via the debounce.SingletonTaskRegistry the Orchestrator also
// shares, each ticking on its own configured interval and recovering from a
// panicking cycle rather than taking the whole process down.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/debounce"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/log"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/orchestrator"
	"github.com/cuemby/dmwcoord/pkg/persistence"
	"github.com/cuemby/dmwcoord/pkg/platform"
)

// cycleTimeout bounds how long any single worker cycle is allowed to run
// before its context is cancelled, so a stuck platform or database call
// can't wedge a loop forever.
const cycleTimeout = 2 * time.Minute

// xpPersistPollInterval is how often the XP-persist loop checks the dirty
// flag; whether it actually flushes is still gated by LevelPersistInterval
// inside Orchestrator.MaybePersistLevels.
const xpPersistPollInterval = 5 * time.Second

// Manager owns every time-driven loop and the collaborators they wrap.
type Manager struct {
	orch     *orchestrator.Orchestrator
	persist  *persistence.Engine
	platform platform.Client
	tasks    *debounce.SingletonTaskRegistry
	broker   *events.Broker
	cfg      config.Config
	logger   zerolog.Logger

	// registeredCommands reports the live set of chat-platform command
	// names; it is nil when the caller doesn't wire one in, in which case
	// the self-test loop is a no-op rather than failing.
	registeredCommands func() []string

	logQueue *logForwardQueue

	// selfTestMu guards the two fields the self-test loop reports through:
	// whichever of lastSelfTestOKAt/lastSelfTestError was set most recently
	// reflects the outcome of the last completed cycle.
	selfTestMu        sync.Mutex
	lastSelfTestOKAt  time.Time
	lastSelfTestError string
}

// LastSelfTestOKAt returns when the self-test loop last completed without
// finding a missing command, or the zero time if it never has.
func (m *Manager) LastSelfTestOKAt() time.Time {
	m.selfTestMu.Lock()
	defer m.selfTestMu.Unlock()
	return m.lastSelfTestOKAt
}

// LastSelfTestError returns the error from the most recent self-test cycle
// that found a problem, or "" if the last completed cycle was clean.
func (m *Manager) LastSelfTestError() string {
	m.selfTestMu.Lock()
	defer m.selfTestMu.Unlock()
	return m.lastSelfTestError
}

func (m *Manager) setSelfTestOK() {
	m.selfTestMu.Lock()
	defer m.selfTestMu.Unlock()
	m.lastSelfTestOKAt = time.Now()
	m.lastSelfTestError = ""
}

func (m *Manager) setSelfTestError(err error) {
	m.selfTestMu.Lock()
	defer m.selfTestMu.Unlock()
	m.lastSelfTestError = err.Error()
}

// NewManager wires a Manager around its collaborators. registeredCommands
// may be nil; it exists so a real command-router package (outside this
// module's scope) can report its live registrations to the self-test loop
// without this package depending on it.
func NewManager(
	orch *orchestrator.Orchestrator,
	persist *persistence.Engine,
	plat platform.Client,
	tasks *debounce.SingletonTaskRegistry,
	broker *events.Broker,
	cfg config.Config,
	registeredCommands func() []string,
) *Manager {
	return &Manager{
		orch:               orch,
		persist:            persist,
		platform:           plat,
		tasks:              tasks,
		broker:             broker,
		cfg:                cfg,
		logger:             log.WithComponent("workers"),
		registeredCommands: registeredCommands,
		logQueue:           newLogForwardQueue(cfg.LogForwardQueueMax),
	}
}

// StartAll registers every loop under its own name in the shared singleton
// task registry; calling it twice is harmless since StartOnce no-ops on a
// name that is still running.
func (m *Manager) StartAll() {
	loops := map[string]func(context.Context){
		"stale_raid_sweep": m.runStaleRaidSweep,
		"reminder":         m.runReminder,
		"integrity_sweep":  m.runIntegritySweep,
		"username_sync":    m.runUsernameSync,
		"xp_persist":       m.runXPPersist,
		"backup":           m.runBackup,
		"self_test":        m.runSelfTest,
		"log_forward":      m.runLogForward,
		"event_mirror":     m.runEventMirror,
	}
	for name, loop := range loops {
		m.tasks.StartOnce(name, loop)
	}
}

// Stop cancels every running loop and waits for them to exit, via the
// registry shared with the Orchestrator.
func (m *Manager) Stop() {
	m.tasks.CancelAll()
}

// cycle runs one worker cycle with a bounded context, instruments it with
// the worker-cycle metrics, and recovers from a panic so one bad cycle
// never takes the loop down; the loop's own ticker simply fires again.
func (m *Manager) cycle(parent context.Context, name string, fn func(ctx context.Context) (int, error)) {
	logger := log.WithWorker(name)
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WorkerCycleDuration, name)

	defer func() {
		if r := recover(); r != nil {
			metrics.WorkerErrorsTotal.WithLabelValues(name).Inc()
			logger.Error().Interface("panic", r).Msg("worker cycle panicked, continuing")
		}
	}()

	ctx, cancel := context.WithTimeout(parent, cycleTimeout)
	defer cancel()

	n, err := fn(ctx)
	metrics.WorkerCyclesTotal.WithLabelValues(name).Inc()
	if err != nil {
		metrics.WorkerErrorsTotal.WithLabelValues(name).Inc()
		logger.Error().Err(err).Msg("worker cycle failed")
		return
	}
	if n > 0 {
		logger.Debug().Int("affected", n).Msg("worker cycle completed")
	}
}
