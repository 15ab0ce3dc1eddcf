package task

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 1,
	status   TEXT NOT NULL,
	agent    TEXT NOT NULL DEFAULT '',
	progress INTEGER NOT NULL DEFAULT 0,
	due      DATETIME,
	notes    TEXT NOT NULL DEFAULT '',
	created  DATETIME NOT NULL,
	history  TEXT NOT NULL DEFAULT '[]'
);
`

// SQLiteStore persists tasks in a SQLite database. Every mutation is
// written before the call returns; the database is the system of record
// for crash recovery.
type SQLiteStore struct {
	mu sync.Mutex // serializes read-modify-write cycles in Mutate
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures
// the tasks table exists, and fails any task left active by a previous
// run. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.recoverOrphans(); err != nil {
		db.Close()
		return nil, fmt.Errorf("recover orphaned tasks: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// recoverOrphans fails tasks found active on load. An active task with
// no live worker is an inconsistency left by a crash; failing it keeps
// the status machine honest and lets the user resubmit.
func (s *SQLiteStore) recoverOrphans() error {
	active := StatusActive
	orphans, err := s.List(Filter{Status: &active})
	if err != nil {
		return err
	}
	for _, t := range orphans {
		err := s.Mutate(t.ID, func(t *Task) error {
			t.Status = StatusFailed
			t.AppendHistory(t.Agent, "recovered", "task was active with no live worker after restart")
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Create persists a new pending task and sets its ID and Created time.
func (s *SQLiteStore) Create(t *Task) (string, error) {
	if t.Name == "" {
		return "", fmt.Errorf("task name is required")
	}
	t.ID = uuid.NewString()
	t.Status = StatusPending
	t.Agent = ""
	t.Progress = 0
	t.Created = time.Now().UTC()

	history, _ := json.Marshal(t.History)
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, name, priority, status, agent, progress, due, notes, created, history)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Name, int(t.Priority), string(t.Status), t.Agent, t.Progress,
		nullTime(t.Due), t.Notes, t.Created, string(history),
	)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return t.ID, nil
}

// Get retrieves a task by ID.
func (s *SQLiteStore) Get(id string) (*Task, error) {
	row := s.db.QueryRow(`
		SELECT id, name, priority, status, agent, progress, due, notes, created, history
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// List returns tasks matching the filter in submission order.
func (s *SQLiteStore) List(filter Filter) ([]*Task, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT id, name, priority, status, agent, progress, due, notes, created, history
		FROM tasks WHERE 1=1`)
	args := []any{}

	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.Agent != "" {
		q.WriteString(" AND agent=?")
		args = append(args, filter.Agent)
	}
	q.WriteString(" ORDER BY created ASC, rowid ASC")
	if filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Mutate applies fn to the stored task and persists the result in one
// write. The read-modify-write cycle runs under the store lock, so
// concurrent workers never interleave partial updates on one record.
func (s *SQLiteStore) Mutate(id string, fn func(*Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Get(id)
	if err != nil {
		return err
	}
	next := cur.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := validateMutation(cur, next); err != nil {
		return err
	}

	history, _ := json.Marshal(next.History)
	res, err := s.db.Exec(`
		UPDATE tasks SET name=?, priority=?, status=?, agent=?, progress=?, due=?, notes=?, history=?
		WHERE id=?`,
		next.Name, int(next.Priority), string(next.Status), next.Agent, next.Progress,
		nullTime(next.Due), next.Notes, string(history), next.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a task by ID.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ArchiveCompleted removes all tasks with status done and returns the
// number removed. Pending, active, and failed tasks are untouched.
func (s *SQLiteStore) ArchiveCompleted() (int, error) {
	res, err := s.db.Exec("DELETE FROM tasks WHERE status=?", string(StatusDone))
	if err != nil {
		return 0, fmt.Errorf("archive completed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// validateMutation enforces the task invariants between the stored
// record and its mutated copy.
func validateMutation(cur, next *Task) error {
	if next.ID != cur.ID {
		return fmt.Errorf("task ID is immutable")
	}
	if next.Status != cur.Status && !CanTransition(cur.Status, next.Status) {
		return fmt.Errorf("task %s: %s -> %s: %w", cur.ID, cur.Status, next.Status, ErrInvalidTransition)
	}
	if next.Progress < 0 || next.Progress > 100 {
		return fmt.Errorf("task %s: progress %d out of range", cur.ID, next.Progress)
	}
	if cur.Status == StatusActive && next.Status == StatusActive && next.Progress < cur.Progress {
		return fmt.Errorf("task %s: progress may not decrease while active (%d -> %d)", cur.ID, cur.Progress, next.Progress)
	}
	if next.Status == StatusPending && next.Agent != "" {
		return fmt.Errorf("task %s: pending task may not have an agent", cur.ID)
	}
	if next.Status != StatusPending && next.Agent == "" {
		return fmt.Errorf("task %s: %s task requires an agent", cur.ID, next.Status)
	}
	if len(next.History) < len(cur.History) {
		return fmt.Errorf("task %s: history is append-only", cur.ID)
	}
	return nil
}

func (t *Task) clone() *Task {
	c := *t
	c.History = append([]HistoryEntry(nil), t.History...)
	if t.Due != nil {
		due := *t.Due
		c.Due = &due
	}
	return &c
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status, historyJSON string
	var priority int
	var due sql.NullTime

	err := s.Scan(
		&t.ID, &t.Name, &priority, &status, &t.Agent, &t.Progress,
		&due, &t.Notes, &t.Created, &historyJSON,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Priority = Priority(priority)
	_ = json.Unmarshal([]byte(historyJSON), &t.History)
	if due.Valid {
		t.Due = &due.Time
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
