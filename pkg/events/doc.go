/*
Package events provides an in-process publish/subscribe event broker for the
coordination engine.

The events package decouples the orchestrator and workers from anything
that merely wants to observe domain activity — the log forwarder, future
admin tooling — without giving them a direct
dependency on the orchestrator itself. Events are delivered best-effort: a
slow or absent subscriber never blocks a publisher.

# Architecture

	┌──────────────────── EVENT SYSTEM ─────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Publishers                     │          │
	│  │  - Orchestrator write handlers (C6)         │          │
	│  │  - Time-driven workers (C7)                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ Publish(event)                       │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │                Broker                       │          │
	│  │  - Buffered event channel (async ingest)    │          │
	│  │  - Non-blocking fan-out to subscribers      │          │
	│  │  - Drops rather than blocks a full buffer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │             Subscribers                     │          │
	│  │  - Log forwarder (terminal message in       │          │
	│  │    tenant log channel)                      │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Event Types

raid.created, raid.finished, raid.canceled:
  - Raid lifecycle transitions (open -> finalized | canceled)

vote.toggled:
  - A user's vote for a day or time option was inserted or removed

slot.qualified, slot.posted:
  - A (day, time) pair crossed the qualification threshold; its
    participant-list message was posted or edited

guild.joined, guild.removed, guild.purged:
  - Tenant lifecycle: the bot joined/left a guild, or an admin purged all
    of a tenant's data

xp.awarded, xp.levelup:
  - A user's XP changed, or crossed a level boundary

persistence.flush_succeeded, persistence.flush_failed:
  - The outcome of one Persistence Engine flush round

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for evt := range sub {
			if evt.Type == events.EventRaidFinished {
				// ...
			}
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventVoteToggled,
		GuildID: guildID,
		Message: "vote toggled",
	})

# Delivery Semantics

The broker makes no delivery guarantee beyond best-effort: Publish enqueues
onto a buffered channel and returns immediately (or drops the event if the
broker has been stopped); broadcast to each subscriber is itself
non-blocking, so a subscriber that stops draining its channel simply misses
events rather than stalling the orchestrator. This mirrors the spec's
requirement that side effects never block a state-lock holder — event
publication is fire-and-forget, never a suspension point inside the state
lock.
*/
package events
