package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GoCodeAlone/coldfront/task"
)

// DefaultOverdueInterval is how often the watcher scans for overdue
// tasks.
const DefaultOverdueInterval = 60 * time.Second

// OverdueWatcher periodically scans the task store and publishes a
// notification for each pending task past its due time. Each task is
// reported at most once per watcher lifetime.
type OverdueWatcher struct {
	store    task.Store
	bus      *Bus
	interval time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewOverdueWatcher(store task.Store, bus *Bus, interval time.Duration, log *zap.Logger) *OverdueWatcher {
	if interval <= 0 {
		interval = DefaultOverdueInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OverdueWatcher{
		store:    store,
		bus:      bus,
		interval: interval,
		log:      log,
		seen:     make(map[string]struct{}),
	}
}

// Run scans on a fixed interval until the context is cancelled. An
// initial scan happens immediately.
func (w *OverdueWatcher) Run(ctx context.Context) {
	w.Scan(time.Now())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Scan(now)
		}
	}
}

// Scan performs one pass and returns how many new overdue tasks were
// reported.
func (w *OverdueWatcher) Scan(now time.Time) int {
	pending := task.StatusPending
	tasks, err := w.store.List(task.Filter{Status: &pending})
	if err != nil {
		w.log.Warn("overdue scan failed", zap.Error(err))
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	reported := 0
	for _, t := range tasks {
		if !t.Overdue(now) {
			continue
		}
		if _, ok := w.seen[t.ID]; ok {
			continue
		}
		w.seen[t.ID] = struct{}{}
		w.bus.Publish(KindTaskOverdue, t.ID, "", "task %q is overdue (due %s)",
			t.Name, t.Due.Format(time.RFC3339))
		w.log.Info("task overdue",
			zap.String("task", t.ID),
			zap.String("name", t.Name),
			zap.Time("due", *t.Due))
		reported++
	}
	return reported
}
