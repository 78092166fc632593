// Package orchestrator implements the coordination engine's reactive
// orchestrator (component C6): the single gatekeeper of every domain
// mutation. It serialises writes under one state lock, invokes the artefact
// synthesiser (C5) and the chat-platform side-effect binding in a fixed
// order, and owns the artefact-cache keyspace inside C1's debug cache.
package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/debounce"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/log"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/persistence"
	"github.com/cuemby/dmwcoord/pkg/platform"
	"github.com/cuemby/dmwcoord/pkg/store"
)

// Artefact-cache kind tags, per the keyspace the Orchestrator owns inside
// C1's debug cache.
const (
	CacheKindFeatureSettings = "feature_settings"
	CacheKindBotMessage      = "bot_message"
	CacheKindSlotTempRole    = "slot_temp_role"
	CacheKindRaidReminder    = "raid_reminder"
	CacheKindAutoReminder    = "auto_reminder"
	CacheKindRaidStart       = "raid_start"
	CacheKindRaidCalendarCfg = "raid_calendar_cfg"
	CacheKindRaidCalendarMsg = "raid_calendar_msg"
)

// Orchestrator is the single gatekeeper of all domain mutations. Most
// methods that touch the store hold mu end-to-end across read, compute,
// side-effect and flush, per the central write-handler template;
// ConfigureChannels, ConfigureFeatureSettings, RunUsernameSync and
// RunStaleRaidSweep release it between steps.
type Orchestrator struct {
	mu sync.Mutex

	store    *store.Store
	persist  *persistence.Engine
	platform platform.Client
	updater  *debounce.GuildUpdater
	tasks    *debounce.SingletonTaskRegistry
	broker   *events.Broker
	cfg      config.Config
	logger   zerolog.Logger

	ack *ackSet

	// levelStateDirty and lastLevelPersist coalesce XP persistence: the
	// Orchestrator only flips this flag, the XP-persist worker (C7) is the
	// one that consults it against level_persist_interval.
	levelStateDirty  bool
	lastLevelPersist time.Time

	// lastLevelupAt gates how often a levelup message is posted for the
	// same user; it is a process-local cooldown guard, not persisted state.
	lastLevelupAt map[store.UserLevelKey]time.Time

	// lastUsernameSyncAt tracks, per guild, when RunUsernameSync last
	// actually re-fetched the member list, so the username-sync worker (C7)
	// can throttle full rescans independently of its own tick interval.
	lastUsernameSyncAt map[uint64]time.Time
}

// New wires an Orchestrator around its collaborators. tasks is the
// SingletonTaskRegistry shared with the time-driven workers (C7), so both
// layers agree on which named background loops are currently live.
func New(
	st *store.Store,
	persist *persistence.Engine,
	plat platform.Client,
	tasks *debounce.SingletonTaskRegistry,
	broker *events.Broker,
	cfg config.Config,
) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		persist:  persist,
		platform: plat,
		tasks:    tasks,
		broker:   broker,
		cfg:      cfg,
		logger:   log.WithComponent("orchestrator"),
		ack:      newAckSet(20000),
	}
	o.updater = debounce.NewGuildUpdater(o.refreshGuildArtefacts, cfg.DebounceWindow, cfg.DebounceCooldown)
	return o
}

// Shutdown cancels any pending debounced refresh and waits for in-flight
// ones to finish. It does not touch the SingletonTaskRegistry, which the
// caller (the process's top-level runner) shuts down once for both the
// Orchestrator and the workers.
func (o *Orchestrator) Shutdown() {
	o.updater.Shutdown()
}

// Store exposes the underlying domain store for read-only reporting paths
// (CLI introspection, the self-test worker) that already hold the lock via
// WithLock.
func (o *Orchestrator) Store() *store.Store { return o.store }

// Ack reports whether requestID has not yet been acknowledged, marking it
// acknowledged as a side effect. Command bindings call this before invoking
// a write handler so retried deliveries are at-most-once. If the platform
// client delivered no correlation id, Ack mints one with uuid so the command
// still gets a real id to log and trace by, even though a minted id can
// never collide with a retried delivery.
func (o *Orchestrator) Ack(requestID string) (id string, isNew bool) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID, o.ack.MarkIfNew(requestID)
}

// WithLock runs fn with the state lock held, for read-only call sites (CLI
// reporting, the self-test worker) that need a consistent store view without
// going through a full write-handler.
func (o *Orchestrator) WithLock(fn func(s *store.Store)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o.store)
}

// Snapshot samples the gauges metrics.Collector exposes, taking the state
// lock for the duration of the read.
func (o *Orchestrator) Snapshot() metrics.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	byStatus := map[string]int{"open": 0, "finalized": 0, "canceled": 0}
	for _, r := range o.store.Raids {
		byStatus[string(r.Status)]++
	}
	return metrics.Snapshot{
		RaidsByStatus: byStatus,
		OpenVotes:     len(o.store.RaidVotes),
		Guilds:        len(o.store.Settings),
	}
}

// persistenceRetryConfig returns the default flush-retry policy. Handlers
// don't currently need per-call tuning, so every call site shares it.
func persistenceRetryConfig() persistence.RetryConfig {
	return persistence.RetryConfig{}
}

func (o *Orchestrator) publish(evt events.EventType, guildID uint64, message string) {
	if o.broker == nil {
		return
	}
	o.broker.Publish(&events.Event{Type: evt, GuildID: guildID, Message: message})
}
