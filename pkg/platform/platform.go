// Package platform declares the contract the coordination engine uses to
// talk to the chat platform (send/edit/delete messages, manage roles) and
// ships a deterministic in-memory fake used by tests and local runs. A real
// gateway-backed client is out of scope; see SPEC_FULL.md.
package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Message is a minimal platform message record.
type Message struct {
	ChannelID uint64
	MessageID uint64
	Content   string
}

// Client is everything the orchestrator and workers need from the chat
// platform. Every method takes a context so a caller can bound how long it
// waits on a slow or unreachable platform.
type Client interface {
	Send(ctx context.Context, channelID uint64, content string) (Message, error)
	Edit(ctx context.Context, channelID, messageID uint64, content string) (Message, error)
	Delete(ctx context.Context, channelID, messageID uint64) error
	CreateRole(ctx context.Context, guildID uint64, name string) (uint64, error)
	DeleteRole(ctx context.Context, guildID, roleID uint64) error
	AssignRole(ctx context.Context, guildID, userID, roleID uint64) error

	// ListGuildMembers returns the current user id -> display name mapping
	// for a guild, used by the username-sync worker. A real gateway-backed
	// client would page through the guild's member list; MemoryClient
	// returns whatever was registered via SetMembers.
	ListGuildMembers(ctx context.Context, guildID uint64) (map[uint64]string, error)
}

// MemoryClient is a deterministic fake Client: ids are allocated in
// submission order, and every call is recorded for assertions in tests.
type MemoryClient struct {
	mu          sync.Mutex
	nextMsgID   uint64
	nextRoleID  uint64
	Messages    map[uint64]Message
	Roles       map[uint64]string
	RoleMembers map[uint64]map[uint64]bool
	Calls       []string
	members     map[uint64]map[uint64]string
}

// NewMemoryClient returns an empty fake client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		nextMsgID:   1,
		nextRoleID:  1,
		Messages:    make(map[uint64]Message),
		Roles:       make(map[uint64]string),
		RoleMembers: make(map[uint64]map[uint64]bool),
		members:     make(map[uint64]map[uint64]string),
	}
}

// SetMembers registers the member list ListGuildMembers returns for guildID,
// for tests that exercise the username-sync worker.
func (m *MemoryClient) SetMembers(guildID uint64, members map[uint64]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[guildID] = members
}

// ListGuildMembers returns the member list previously registered via
// SetMembers, or an empty map if none was set.
func (m *MemoryClient) ListGuildMembers(ctx context.Context, guildID uint64) (map[uint64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]string, len(m.members[guildID]))
	for id, name := range m.members[guildID] {
		out[id] = name
	}
	return out, nil
}

func (m *MemoryClient) record(call string) {
	m.Calls = append(m.Calls, call)
}

// Send creates a new message and returns it.
func (m *MemoryClient) Send(ctx context.Context, channelID uint64, content string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := Message{ChannelID: channelID, MessageID: m.nextMsgID, Content: content}
	m.Messages[msg.MessageID] = msg
	m.nextMsgID++
	m.record(fmt.Sprintf("send:%d", msg.MessageID))
	return msg, nil
}

// Edit overwrites an existing message's content.
func (m *MemoryClient) Edit(ctx context.Context, channelID, messageID uint64, content string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Messages[messageID]
	if !ok {
		return Message{}, fmt.Errorf("platform: message %d not found", messageID)
	}
	existing.Content = content
	m.Messages[messageID] = existing
	m.record(fmt.Sprintf("edit:%d", messageID))
	return existing, nil
}

// Delete removes a message.
func (m *MemoryClient) Delete(ctx context.Context, channelID, messageID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Messages, messageID)
	m.record(fmt.Sprintf("delete:%d", messageID))
	return nil
}

// CreateRole allocates a new role id within a guild.
func (m *MemoryClient) CreateRole(ctx context.Context, guildID uint64, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextRoleID
	m.nextRoleID++
	m.Roles[id] = name
	m.RoleMembers[id] = make(map[uint64]bool)
	m.record(fmt.Sprintf("create_role:%d", id))
	return id, nil
}

// DeleteRole removes a role and its membership.
func (m *MemoryClient) DeleteRole(ctx context.Context, guildID, roleID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Roles, roleID)
	delete(m.RoleMembers, roleID)
	m.record(fmt.Sprintf("delete_role:%d", roleID))
	return nil
}

// AssignRole adds a user to a role's membership set.
func (m *MemoryClient) AssignRole(ctx context.Context, guildID, userID, roleID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RoleMembers[roleID] == nil {
		m.RoleMembers[roleID] = make(map[uint64]bool)
	}
	m.RoleMembers[roleID][userID] = true
	m.record(fmt.Sprintf("assign_role:%d:%d", roleID, userID))
	return nil
}

// SortedCalls returns the recorded call log, useful for stable test
// assertions that don't care about exact ordering of concurrent calls.
func (m *MemoryClient) SortedCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.Calls...)
	sort.Strings(out)
	return out
}
