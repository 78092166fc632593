package workers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/platform"
)

func TestLogForwardQueueDropsOldestWhenFull(t *testing.T) {
	q := newLogForwardQueue(3)
	q.push(logForwardEntry{GuildID: 1, Message: "a"})
	q.push(logForwardEntry{GuildID: 1, Message: "b"})
	q.push(logForwardEntry{GuildID: 1, Message: "c"})
	q.push(logForwardEntry{GuildID: 1, Message: "d"})

	got := q.drain()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Message, "the oldest entry must be dropped once the queue is full")
	assert.Equal(t, "d", got[2].Message)
}

func TestLogForwardQueueDrainEmptiesIt(t *testing.T) {
	q := newLogForwardQueue(10)
	q.push(logForwardEntry{GuildID: 1, Message: "a"})

	require.Len(t, q.drain(), 1)
	assert.Empty(t, q.drain(), "a second drain without an intervening push must return nothing")
}

func TestLogForwardOnceSendsOneMessagePerGuild(t *testing.T) {
	client := platform.NewMemoryClient()
	m := &Manager{
		platform: client,
		cfg:      config.Config{LogChannelID: 42},
		logQueue: newLogForwardQueue(100),
	}
	m.Enqueue(1, "info", "raid created")
	m.Enqueue(1, "info", "vote toggled")
	m.Enqueue(2, "warn", "persistence retry")

	sent, err := m.logForwardOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "one message per distinct guild, not one per log line")
	assert.Len(t, client.Messages, 2)
}

func TestLogForwardOnceNoopsWithoutLogChannel(t *testing.T) {
	client := platform.NewMemoryClient()
	m := &Manager{
		platform: client,
		cfg:      config.Config{},
		logQueue: newLogForwardQueue(100),
	}
	m.Enqueue(1, "info", "raid created")

	sent, err := m.logForwardOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, client.Messages)
}
