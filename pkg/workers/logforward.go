package workers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// logForwardEntry is one queued line waiting to be mirrored to the
// operator's log channel.
type logForwardEntry struct {
	GuildID uint64
	Level   string
	Message string
}

// logForwardQueue is a bounded FIFO that drops its oldest entry rather than
// blocking the producer once it's full, since a burst of guild activity
// must never back-pressure the orchestrator's write path.
type logForwardQueue struct {
	mu      sync.Mutex
	entries []logForwardEntry
	max     int
}

func newLogForwardQueue(max int) *logForwardQueue {
	if max <= 0 {
		max = 1000
	}
	return &logForwardQueue{max: max}
}

func (q *logForwardQueue) push(e logForwardEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.max {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, e)
}

func (q *logForwardQueue) drain() []logForwardEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}

// Enqueue adds one line to the forwarding queue. It never blocks.
func (m *Manager) Enqueue(guildID uint64, level, message string) {
	m.logQueue.push(logForwardEntry{GuildID: guildID, Level: level, Message: message})
}

// runEventMirror subscribes to the domain-event broker for the lifetime of
// the process and feeds every event into the log-forward queue, so guild
// activity reaches the operator's log channel without any write handler
// having to know the log channel exists.
func (m *Manager) runEventMirror(parentCtx context.Context) {
	if m.broker == nil {
		<-parentCtx.Done()
		return
	}
	sub := m.broker.Subscribe()
	defer m.broker.Unsubscribe(sub)

	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			m.Enqueue(evt.GuildID, "info", fmt.Sprintf("%s: %s", evt.Type, evt.Message))
		case <-parentCtx.Done():
			return
		}
	}
}

// runLogForward flushes the queue every LogForwardFlushInterval, collapsing
// everything queued for one guild into a single terminal message rather
// than one platform call per line.
func (m *Manager) runLogForward(parentCtx context.Context) {
	ticker := time.NewTicker(m.cfg.LogForwardFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "log_forward", m.logForwardOnce)
		case <-parentCtx.Done():
			return
		}
	}
}

func (m *Manager) logForwardOnce(ctx context.Context) (int, error) {
	entries := m.logQueue.drain()
	if len(entries) == 0 || m.cfg.LogChannelID == 0 {
		return 0, nil
	}

	byGuild := make(map[uint64][]logForwardEntry)
	order := make([]uint64, 0)
	for _, e := range entries {
		if _, seen := byGuild[e.GuildID]; !seen {
			order = append(order, e.GuildID)
		}
		byGuild[e.GuildID] = append(byGuild[e.GuildID], e)
	}

	sent := 0
	for _, guildID := range order {
		var b strings.Builder
		fmt.Fprintf(&b, "📋 guild `%d` — %d log line(s)\n", guildID, len(byGuild[guildID]))
		for _, row := range byGuild[guildID] {
			fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(row.Level), row.Message)
		}
		if _, err := m.platform.Send(ctx, m.cfg.LogChannelID, b.String()); err != nil {
			return sent, fmt.Errorf("workers: log forward: guild %d: %w", guildID, err)
		}
		sent++
	}
	return sent, nil
}
