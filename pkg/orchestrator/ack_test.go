package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAckSetMarksEachIDOnlyOnce(t *testing.T) {
	a := newAckSet(10)

	assert.True(t, a.MarkIfNew("req-1"), "an id seen for the first time is new")
	assert.False(t, a.MarkIfNew("req-1"), "a retried delivery of the same id must not be treated as new")
	assert.True(t, a.MarkIfNew("req-2"), "a distinct id is still new")
}

func TestAckSetAlwaysTreatsEmptyIDAsNew(t *testing.T) {
	a := newAckSet(10)

	assert.True(t, a.MarkIfNew(""))
	assert.True(t, a.MarkIfNew(""), "an empty id carries no identity to dedupe on")
}

func TestAckSetResetsWholesaleAtCapacity(t *testing.T) {
	a := newAckSet(2)

	assert.True(t, a.MarkIfNew("a"))
	assert.True(t, a.MarkIfNew("b"))
	// the set is now at capacity; the next mark resets it rather than
	// evicting individually, so an id marked before the reset is reported
	// new again too.
	assert.True(t, a.MarkIfNew("c"))
	assert.True(t, a.MarkIfNew("a"), "a was forgotten by the wholesale reset")
}

func TestOrchestratorAckMintsAnIDWhenThePlatformSuppliesNone(t *testing.T) {
	o := &Orchestrator{ack: newAckSet(10)}

	id, isNew := o.Ack("")
	assert.NotEmpty(t, id, "Ack must mint a real correlation id rather than pass an empty one through")
	assert.True(t, isNew)

	// A distinct empty-string call mints a different id and is still new,
	// since two independently-minted ids can never collide.
	id2, isNew2 := o.Ack("")
	assert.NotEqual(t, id, id2)
	assert.True(t, isNew2)
}

func TestOrchestratorAckDedupesAPlatformSuppliedID(t *testing.T) {
	o := &Orchestrator{ack: newAckSet(10)}

	id, isNew := o.Ack("interaction-42")
	assert.Equal(t, "interaction-42", id)
	assert.True(t, isNew)

	_, isNew2 := o.Ack("interaction-42")
	assert.False(t, isNew2, "a retried delivery of the same platform-supplied id must dedupe")
}
