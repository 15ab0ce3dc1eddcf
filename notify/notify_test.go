package notify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GoCodeAlone/coldfront/task"
)

func TestBus_PublishAndRecent(t *testing.T) {
	bus := NewBus(0)

	bus.Publish(KindInfo, "", "", "first")
	bus.Publish(KindTaskAssigned, "t1", "frost", "assigned %s", "t1")

	recent := bus.Recent(0)
	require.Len(t, recent, 2)
	// Newest first.
	assert.Equal(t, KindTaskAssigned, recent[0].Kind)
	assert.Equal(t, "assigned t1", recent[0].Message)
	assert.Equal(t, "frost", recent[0].Agent)
	assert.Equal(t, "first", recent[1].Message)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestBus_EvictsOldestAtCap(t *testing.T) {
	bus := NewBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(KindInfo, "", "", "msg %d", i)
	}

	assert.Equal(t, 3, bus.Len())
	recent := bus.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "msg 4", recent[0].Message)
	assert.Equal(t, "msg 2", recent[2].Message)
}

func TestBus_RecentLimit(t *testing.T) {
	bus := NewBus(0)
	for i := 0; i < 4; i++ {
		bus.Publish(KindInfo, "", "", "msg %d", i)
	}
	recent := bus.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg 3", recent[0].Message)
}

func TestBus_SubscribeAndUnsubscribe(t *testing.T) {
	bus := NewBus(0)
	var got []Notification
	unsub := bus.Subscribe(func(n Notification) { got = append(got, n) })

	bus.Publish(KindInfo, "", "", "one")
	unsub()
	bus.Publish(KindInfo, "", "", "two")

	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Message)
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(0)
	bus.Publish(KindInfo, "", "", "x")
	bus.Clear()
	assert.Zero(t, bus.Len())
}

func newWatcherStore(t *testing.T) *task.SQLiteStore {
	t.Helper()
	store, err := task.NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOverdueWatcher_ReportsOncePerTask(t *testing.T) {
	store := newWatcherStore(t)
	bus := NewBus(0)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	overdueID, err := store.Create(&task.Task{Name: "late report", Due: &past})
	require.NoError(t, err)
	_, err = store.Create(&task.Task{Name: "on time", Due: &future})
	require.NoError(t, err)
	_, err = store.Create(&task.Task{Name: "no due date"})
	require.NoError(t, err)

	w := NewOverdueWatcher(store, bus, time.Minute, zap.NewNop())

	assert.Equal(t, 1, w.Scan(time.Now()))
	recent := bus.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, KindTaskOverdue, recent[0].Kind)
	assert.Equal(t, overdueID, recent[0].TaskID)

	// A second scan stays quiet about the same task.
	assert.Zero(t, w.Scan(time.Now()))
	assert.Equal(t, 1, bus.Len())
}

func TestOverdueWatcher_SkipsNonPending(t *testing.T) {
	store := newWatcherStore(t)
	bus := NewBus(0)

	past := time.Now().Add(-time.Hour)
	id, err := store.Create(&task.Task{Name: "already started", Due: &past})
	require.NoError(t, err)
	require.NoError(t, store.Mutate(id, func(t *task.Task) error {
		t.Status = task.StatusActive
		t.Agent = "frost"
		return nil
	}))

	w := NewOverdueWatcher(store, bus, time.Minute, zap.NewNop())
	assert.Zero(t, w.Scan(time.Now()))
}
