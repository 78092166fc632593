/*
Package log provides structured logging for the coordination engine using
zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, a configurable level, and helper functions
for the common logging patterns the orchestrator and workers need. Every log
line carries a timestamp and supports filtering by severity for production
debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - zerolog.Logger instance                  │          │
	│  │  - Initialized via log.Init(Config)          │          │
	│  │  - Safe for concurrent use                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout or a custom writer        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("orchestrator")            │          │
	│  │  - WithGuildID(guildID)                     │          │
	│  │  - WithRaidID(raidID)                       │          │
	│  │  - WithWorker("stale-raid")                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON format:                               │          │
	│  │  {"level":"info","component":"orchestrator", │          │
	│  │   "guild_id":1,"time":"...","message":"..."} │          │
	│  │                                              │          │
	│  │  Console format:                            │          │
	│  │  10:30AM INF vote toggled component=orchestrator │      │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Initialized once via Init(Config) at process start
  - Re-initializing (e.g. in a test) simply replaces the global instance

Child Loggers:
  - WithComponent attaches a "component" field (orchestrator, persistence,
    schema, debounce, worker, platform)
  - WithGuildID and WithRaidID attach the tenant/raid the log line concerns,
    matching the spec's "every piece of state is keyed by its id" framing
  - WithWorker attaches the named C7 loop a log line came from

Package Helpers:
  - Info/Debug/Warn/Error/Errorf/Fatal operate on the global Logger directly,
    for call sites that don't need a child logger

# Usage

	import "github.com/cuemby/dmwcoord/pkg/log"

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("orchestrator").With().Uint64("guild_id", guildID).Logger()
	logger.Info().Str("handler", "toggle_vote").Msg("vote toggled")

	if err := engine.Flush(ctx, store); err != nil {
		log.Errorf("persistence flush failed", err)
	}

# Log Levels

debug:
  - Transport-error swallowing (failed sends/edits, retried or compensated)
  - Verbose per-iteration worker detail

info:
  - Default level
  - Raid lifecycle transitions, successful flushes, schema alignment summary

warn:
  - Flush retries, debounce cooldown waits extending past expectation
  - Degraded conditions that self-heal (integrity sweep removing an orphan)

error:
  - Flush exhausted its retry budget
  - Worker cycle recovered from a panic

fatal:
  - SchemaError after alignment: an expected table/column/index is still
    missing
  - SingletonLost: the advisory lock could not be acquired at boot

# Component Naming Convention

Use the C1-C7 component's natural name: "store", "persistence", "schema",
"debounce", "orchestrator", "worker". Worker loops additionally attach
WithWorker("stale-raid"), WithWorker("reminder"), and so on so log lines can
be filtered per named loop without grepping message text.
*/
package log
