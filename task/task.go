// Package task defines the swarm work item model and its persistence.
package task

import (
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// ErrInvalidTransition is returned when a status change violates the
// pending -> active -> done|failed lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound is returned when a task ID does not exist in the store.
var ErrNotFound = errors.New("task not found")

// CanTransition reports whether moving from one status to another is a
// legal lifecycle step.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive
	case StatusActive:
		return to == StatusDone || to == StatusFailed
	}
	return false
}

// Priority determines task ordering in listings. Higher sorts first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a priority name to its value. An empty string
// maps to medium.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return PriorityMedium, fmt.Errorf("unknown priority %q", s)
}

// HistoryEntry records one action taken on a task.
type HistoryEntry struct {
	Agent  string    `json:"agent"`
	Action string    `json:"action"`
	Note   string    `json:"note,omitempty"`
	Time   time.Time `json:"time"`
}

// Task is a unit of work processed by one swarm worker.
type Task struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Priority Priority       `json:"priority"`
	Status   Status         `json:"status"`
	Agent    string         `json:"agent,omitempty"` // assigned agent ID, empty while pending
	Progress int            `json:"progress"`        // 0-100, monotonic while active
	Due      *time.Time     `json:"due,omitempty"`
	Notes    string         `json:"notes,omitempty"`
	Created  time.Time      `json:"created"`
	History  []HistoryEntry `json:"history,omitempty"`
}

// AppendHistory adds an entry stamped with the current time.
func (t *Task) AppendHistory(agent, action, note string) {
	t.History = append(t.History, HistoryEntry{
		Agent:  agent,
		Action: action,
		Note:   note,
		Time:   time.Now().UTC(),
	})
}

// Overdue reports whether the task is pending past its due date.
func (t *Task) Overdue(now time.Time) bool {
	return t.Status == StatusPending && t.Due != nil && !t.Due.After(now)
}

// Filter controls which tasks are returned by Store.List.
type Filter struct {
	Status *Status
	Agent  string
	Limit  int
}

// Store persists and retrieves tasks. All mutations are atomic with
// respect to concurrent workers; Mutate is the single write path for
// existing records so a history append and a progress update land in
// one durable write.
type Store interface {
	// Create persists a new pending task and returns its assigned ID.
	Create(t *Task) (string, error)

	// Get retrieves a task by ID.
	Get(id string) (*Task, error)

	// List returns tasks matching the filter in submission (FIFO) order.
	List(filter Filter) ([]*Task, error)

	// Mutate applies fn to the task under the store's write lock and
	// persists the result. Status changes are validated against the
	// lifecycle; an illegal change fails with ErrInvalidTransition and
	// nothing is written.
	Mutate(id string, fn func(*Task) error) error

	// Delete removes a task by ID.
	Delete(id string) error

	// ArchiveCompleted removes all tasks with status done and returns
	// the number removed.
	ArchiveCompleted() (int, error)
}
