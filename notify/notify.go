// Package notify provides the swarm notification log and the overdue
// task watcher.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the category of a notification.
type Kind string

const (
	KindTaskAssigned  Kind = "task_assigned"
	KindTaskCompleted Kind = "task_completed"
	KindTaskFailed    Kind = "task_failed"
	KindTaskOverdue   Kind = "task_overdue"
	KindConfirm       Kind = "confirm_required"
	KindInfo          Kind = "info"
)

// Notification is one entry in the swarm event log.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	TaskID    string    `json:"task_id,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives notifications as they are published.
type Handler func(n Notification)

// Bus is a bounded append-only in-process notification log. When the
// cap is reached the oldest entries are evicted.
type Bus struct {
	mu       sync.RWMutex
	entries  []Notification
	max      int
	handlers map[int]Handler
	nextID   int
}

const defaultCap = 200

// NewBus creates a Bus holding at most max entries. max <= 0 uses the
// default cap of 200.
func NewBus(max int) *Bus {
	if max <= 0 {
		max = defaultCap
	}
	return &Bus{max: max, handlers: make(map[int]Handler)}
}

// Publish appends a notification, stamping its ID and timestamp, and
// delivers it to subscribers.
func (b *Bus) Publish(kind Kind, taskID, agent, format string, args ...any) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		TaskID:    taskID,
		Agent:     agent,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now().UTC(),
	}

	b.mu.Lock()
	b.entries = append(b.entries, n)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
	var targets []Handler
	for _, h := range b.handlers {
		targets = append(targets, h)
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(n)
	}
	return n
}

// Subscribe registers a handler for future notifications. The returned
// function unsubscribes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Recent returns up to limit notifications, newest first. limit <= 0
// returns all retained entries.
func (b *Bus) Recent(limit int) []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Notification, 0, n)
	for i := len(b.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.entries[i])
	}
	return out
}

// Len returns the number of retained notifications.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Clear drops all retained notifications.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}
