// Package debounce implements the coordination engine's debounced tenant
// updater (component C4) and the singleton task registry shared with the
// time-driven workers (component C7).
package debounce

import (
	"context"
	"sync"
)

type taskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *taskHandle) isDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// SingletonTaskRegistry ensures at most one named background task runs at a
// time, mirroring the original's start_once/get/cancel_all contract.
type SingletonTaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*taskHandle
}

// NewSingletonTaskRegistry returns an empty registry.
func NewSingletonTaskRegistry() *SingletonTaskRegistry {
	return &SingletonTaskRegistry{tasks: make(map[string]*taskHandle)}
}

// StartOnce starts factory under the given name unless a task with that name
// is already running; a finished task's name may be reused.
func (r *SingletonTaskRegistry) StartOnce(name string, factory func(ctx context.Context)) {
	r.mu.Lock()
	if existing, ok := r.tasks[name]; ok && !existing.isDone() {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	handle := &taskHandle{cancel: cancel, done: make(chan struct{})}
	r.tasks[name] = handle
	r.mu.Unlock()

	go func() {
		defer close(handle.done)
		factory(ctx)
	}()
}

// Get reports whether a task with the given name is currently running.
func (r *SingletonTaskRegistry) Get(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tasks[name]
	return ok && !h.isDone()
}

// CancelAll cancels every running task and waits for them to finish.
func (r *SingletonTaskRegistry) CancelAll() {
	r.mu.Lock()
	handles := make([]*taskHandle, 0, len(r.tasks))
	for _, h := range r.tasks {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	for _, h := range handles {
		<-h.done
	}
}
