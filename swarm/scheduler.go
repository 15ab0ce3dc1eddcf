// Package swarm schedules tasks across the agent roster and runs one
// worker per task.
package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/GoCodeAlone/coldfront/agent"
	"github.com/GoCodeAlone/coldfront/notify"
	"github.com/GoCodeAlone/coldfront/provider"
	"github.com/GoCodeAlone/coldfront/task"
	"github.com/GoCodeAlone/coldfront/toolrun"
)

// DefaultMaxWorkers bounds how many tasks run concurrently when the
// configuration does not say otherwise.
const DefaultMaxWorkers = 3

// Scheduler assigns pending tasks to agents round-robin and runs each
// task in its own worker, bounded by a weighted semaphore.
type Scheduler struct {
	store   task.Store
	pool    *agent.Pool
	runtime *toolrun.Runtime
	model   provider.Client
	bus     *notify.Bus
	sem     *semaphore.Weighted
	log     *zap.Logger
	wg      sync.WaitGroup
}

// Options configures a Scheduler.
type Options struct {
	Store      task.Store
	Pool       *agent.Pool
	Runtime    *toolrun.Runtime
	Model      provider.Client
	Bus        *notify.Bus
	MaxWorkers int
	Log        *zap.Logger
}

func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil || opts.Pool == nil || opts.Runtime == nil || opts.Model == nil {
		return nil, fmt.Errorf("scheduler requires store, pool, runtime and model")
	}
	if opts.Bus == nil {
		opts.Bus = notify.NewBus(0)
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Scheduler{
		store:   opts.Store,
		pool:    opts.Pool,
		runtime: opts.Runtime,
		model:   opts.Model,
		bus:     opts.Bus,
		sem:     semaphore.NewWeighted(int64(opts.MaxWorkers)),
		log:     opts.Log,
	}, nil
}

// Bus returns the scheduler's notification bus.
func (s *Scheduler) Bus() *notify.Bus { return s.bus }

// Submit creates a new pending task.
func (s *Scheduler) Submit(name string, priority task.Priority, due *time.Time, notes string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("task name is required")
	}
	t := &task.Task{
		Name:     name,
		Priority: priority,
		Due:      due,
		Notes:    notes,
	}
	t.AppendHistory("", "submitted", notes)
	id, err := s.store.Create(t)
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	s.log.Info("task submitted",
		zap.String("task", id),
		zap.String("name", name),
		zap.Stringer("priority", priority))
	return id, nil
}

// RunSwarm assigns every pending task to an agent in round-robin order
// and dispatches a worker for each. It returns once all dispatched
// workers have finished.
func (s *Scheduler) RunSwarm(ctx context.Context) error {
	pending := task.StatusPending
	tasks, err := s.store.List(task.Filter{Status: &pending})
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}

	for _, t := range tasks {
		ag := s.pool.Next()
		if err := s.dispatch(ctx, t.ID, ag); err != nil {
			s.Wait()
			return err
		}
	}
	s.Wait()
	return nil
}

// Assign routes one pending task to a specific agent and dispatches a
// worker for it. Call Wait to block until it finishes.
func (s *Scheduler) Assign(ctx context.Context, taskID, agentID string) error {
	ag, ok := s.pool.Get(agentID)
	if !ok {
		return fmt.Errorf("unknown agent %q", agentID)
	}
	return s.dispatch(ctx, taskID, ag)
}

// Wait blocks until all dispatched workers have finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

// dispatch activates the task and starts its worker. Semaphore
// acquisition happens here so the number of live workers never exceeds
// the configured bound.
func (s *Scheduler) dispatch(ctx context.Context, taskID string, ag agent.Agent) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker slot: %w", err)
	}

	if err := s.activate(taskID, ag); err != nil {
		s.sem.Release(1)
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		s.runTask(ctx, taskID, ag)
	}()
	return nil
}

// activate transitions the task to active and pins it to the agent.
func (s *Scheduler) activate(taskID string, ag agent.Agent) error {
	err := s.store.Mutate(taskID, func(t *task.Task) error {
		t.Status = task.StatusActive
		t.Agent = ag.ID
		t.AppendHistory(ag.ID, "assigned", fmt.Sprintf("assigned to %s", ag.Name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("activate task %s: %w", taskID, err)
	}
	s.bus.Publish(notify.KindTaskAssigned, taskID, ag.ID, "task assigned to %s", ag.Name)
	return nil
}

// runTask owns the full lifecycle of one active task. Worker failures
// mark the task failed; they never propagate.
func (s *Scheduler) runTask(ctx context.Context, taskID string, ag agent.Agent) {
	if err := s.pool.Acquire(ag.ID); err != nil {
		s.log.Error("agent vanished from pool", zap.String("agent", ag.ID), zap.Error(err))
		s.finish(taskID, ag.ID, "", err)
		return
	}
	defer s.pool.Release(ag.ID)

	t, err := s.store.Get(taskID)
	if err != nil {
		s.log.Error("task vanished after activation", zap.String("task", taskID), zap.Error(err))
		return
	}

	w := &worker{store: s.store, runtime: s.runtime, model: s.model, bus: s.bus, log: s.log}
	note, err := w.run(ctx, t, ag)
	s.finish(taskID, ag.ID, note, err)
}

// finish writes the terminal status for a task.
func (s *Scheduler) finish(taskID, agentID, note string, runErr error) {
	var mutErr error
	if runErr != nil {
		mutErr = s.store.Mutate(taskID, func(t *task.Task) error {
			t.Status = task.StatusFailed
			t.AppendHistory(agentID, "failed", runErr.Error())
			return nil
		})
		s.bus.Publish(notify.KindTaskFailed, taskID, agentID, "task failed: %v", runErr)
		s.log.Warn("task failed",
			zap.String("task", taskID),
			zap.String("agent", agentID),
			zap.Error(runErr))
	} else {
		mutErr = s.store.Mutate(taskID, func(t *task.Task) error {
			t.Status = task.StatusDone
			t.Progress = progressComplete
			t.AppendHistory(agentID, "completed", note)
			return nil
		})
		s.bus.Publish(notify.KindTaskCompleted, taskID, agentID, "task completed")
		s.log.Info("task completed",
			zap.String("task", taskID),
			zap.String("agent", agentID))
	}
	if mutErr != nil {
		s.log.Error("failed to record terminal status",
			zap.String("task", taskID), zap.Error(mutErr))
	}
}

// Snapshot is a point-in-time view of the swarm.
type Snapshot struct {
	Tasks         []*task.Task          `json:"tasks"`
	Agents        []agent.Agent         `json:"agents"`
	Counts        map[task.Status]int   `json:"counts"`
	Notifications []notify.Notification `json:"notifications"`
}

// Snapshot reports every task, the agent roster, per-status counts and
// the most recent notifications.
func (s *Scheduler) Snapshot(notificationLimit int) (*Snapshot, error) {
	tasks, err := s.store.List(task.Filter{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	counts := make(map[task.Status]int, 4)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return &Snapshot{
		Tasks:         tasks,
		Agents:        s.pool.List(),
		Counts:        counts,
		Notifications: s.bus.Recent(notificationLimit),
	}, nil
}
