package workers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfTestOnceNoopsWithoutCallback(t *testing.T) {
	m := &Manager{}
	n, err := m.selfTestOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, m.LastSelfTestOKAt().IsZero(), "a no-op cycle still counts as a clean pass")
}

func TestSelfTestOnceReportsMissingCommands(t *testing.T) {
	m := &Manager{
		registeredCommands: func() []string {
			return []string{"settings", "status", "help"}
		},
	}
	n, err := m.selfTestOnce(context.Background())
	assert.Error(t, err, "a registered set missing most of expectedCommands must fail")
	assert.Greater(t, n, 0)
	assert.NotEmpty(t, m.LastSelfTestError())
	assert.True(t, m.LastSelfTestOKAt().IsZero())
}

func TestSelfTestOnceSucceedsWhenEverythingIsRegistered(t *testing.T) {
	m := &Manager{
		registeredCommands: func() []string {
			return append([]string(nil), expectedCommands...)
		},
	}
	n, err := m.selfTestOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, m.LastSelfTestOKAt().IsZero())
	assert.Empty(t, m.LastSelfTestError())
}
