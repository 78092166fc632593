package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientSendAllocatesIncrementingIDs(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	m1, err := c.Send(ctx, 10, "hello")
	require.NoError(t, err)
	m2, err := c.Send(ctx, 10, "world")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), m1.MessageID)
	assert.Equal(t, uint64(2), m2.MessageID)
}

func TestMemoryClientEditUpdatesContent(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()
	msg, _ := c.Send(ctx, 10, "before")

	edited, err := c.Edit(ctx, 10, msg.MessageID, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", edited.Content)
	assert.Equal(t, "after", c.Messages[msg.MessageID].Content)
}

func TestMemoryClientRoleLifecycle(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	roleID, err := c.CreateRole(ctx, 1, "raiders")
	require.NoError(t, err)
	require.NoError(t, c.AssignRole(ctx, 1, 42, roleID))

	assert.True(t, c.RoleMembers[roleID][42])

	require.NoError(t, c.DeleteRole(ctx, 1, roleID))
	assert.NotContains(t, c.Roles, roleID)
}
