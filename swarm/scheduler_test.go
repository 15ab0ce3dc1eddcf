package swarm

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GoCodeAlone/coldfront/agent"
	"github.com/GoCodeAlone/coldfront/notify"
	"github.com/GoCodeAlone/coldfront/provider"
	"github.com/GoCodeAlone/coldfront/provider/mock"
	"github.com/GoCodeAlone/coldfront/task"
	"github.com/GoCodeAlone/coldfront/toolrun"
)

// echoTool records every invocation.
type echoTool struct {
	mu      sync.Mutex
	confirm bool
	calls   [][]string
}

func (e *echoTool) Name() string            { return "echo" }
func (e *echoTool) Description() string     { return "echo for tests" }
func (e *echoTool) Params() []toolrun.Param { return []toolrun.Param{{Name: "text", Desc: "text"}} }
func (e *echoTool) NeedsConfirm() bool      { return e.confirm }
func (e *echoTool) Execute(_ context.Context, args []string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, args)
	if len(args) > 0 {
		return args[0], nil
	}
	return "", nil
}

func (e *echoTool) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fixture struct {
	store *task.SQLiteStore
	pool  *agent.Pool
	sched *Scheduler
	echo  *echoTool
}

func roster() []agent.Agent {
	return []agent.Agent{
		{ID: "frost", Name: "Frost"},
		{ID: "drift", Name: "Drift"},
		{ID: "boreas", Name: "Boreas"},
	}
}

func newFixture(t *testing.T, model provider.Client, maxWorkers int) *fixture {
	t.Helper()

	store, err := task.NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pool, err := agent.NewPool(roster())
	require.NoError(t, err)

	echo := &echoTool{}
	reg := toolrun.NewRegistry()
	reg.Register(echo)

	sched, err := New(Options{
		Store:      store,
		Pool:       pool,
		Runtime:    toolrun.NewRuntime(reg, nil, zap.NewNop()),
		Model:      model,
		Bus:        notify.NewBus(0),
		MaxWorkers: maxWorkers,
		Log:        zap.NewNop(),
	})
	require.NoError(t, err)

	return &fixture{store: store, pool: pool, sched: sched, echo: echo}
}

func submitN(t *testing.T, f *fixture, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	names := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	for i := 0; i < n; i++ {
		id, err := f.sched.Submit(names[i%len(names)], task.PriorityMedium, nil, "")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestSubmit_RequiresName(t *testing.T) {
	f := newFixture(t, mock.New(), 1)
	_, err := f.sched.Submit("", task.PriorityLow, nil, "")
	assert.Error(t, err)
}

func TestRunSwarm_RoundRobinAssignment(t *testing.T) {
	f := newFixture(t, mock.New(), 1)
	ids := submitN(t, f, 5)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	want := []string{"frost", "drift", "boreas", "frost", "drift"}
	for i, id := range ids {
		got, err := f.store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want[i], got.Agent, "task %d", i)
	}
}

func TestRunSwarm_CompletesTask(t *testing.T) {
	f := newFixture(t, mock.New("all finished"), 1)
	ids := submitN(t, f, 1)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	got, err := f.store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Equal(t, 100, got.Progress)

	actions := historyActions(got)
	assert.Contains(t, actions, "assigned")
	assert.Contains(t, actions, "progress")
	assert.Contains(t, actions, "completed")

	recent := f.sched.Bus().Recent(0)
	require.NotEmpty(t, recent)
	assert.Equal(t, notify.KindTaskCompleted, recent[0].Kind)
}

func TestRunSwarm_ModelFailureIsLocalToTask(t *testing.T) {
	model := mock.NewScripted(
		mock.Turn{Err: provider.ErrBackendUnavailable},
		mock.Turn{Text: "fine"},
	)
	f := newFixture(t, model, 1)
	ids := submitN(t, f, 2)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	first, err := f.store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, first.Status)
	assert.Contains(t, historyActions(first), "failed")

	second, err := f.store.Get(ids[1])
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, second.Status)
}

func TestRunSwarm_ToolChain(t *testing.T) {
	model := mock.New("let me check TOOL[echo](hello)", "all done")
	f := newFixture(t, model, 1)
	ids := submitN(t, f, 1)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	require.Equal(t, 1, f.echo.callCount())
	assert.Equal(t, []string{"hello"}, f.echo.calls[0])

	got, err := f.store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Contains(t, historyActions(got), "tool_ok")
}

func TestRunSwarm_ChainIsBounded(t *testing.T) {
	// The model asks for a tool on every turn; the chain must stop at
	// the iteration cap instead of looping forever.
	model := mock.New(
		"TOOL[echo](1)", "TOOL[echo](2)", "TOOL[echo](3)",
		"TOOL[echo](4)", "TOOL[echo](5)", "TOOL[echo](6)",
		"TOOL[echo](7)", "TOOL[echo](8)",
	)
	f := newFixture(t, model, 1)
	ids := submitN(t, f, 1)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	assert.Equal(t, toolrun.MaxChainIterations, f.echo.callCount())

	got, err := f.store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
}

func TestRunSwarm_ConfirmGatedToolIsDeferred(t *testing.T) {
	model := mock.New("TOOL[echo](dangerous)", "should not be reached")
	f := newFixture(t, model, 1)
	f.echo.confirm = true
	ids := submitN(t, f, 1)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	assert.Zero(t, f.echo.callCount(), "confirm-gated tool must not run")

	got, err := f.store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Contains(t, historyActions(got), "tool_deferred")

	kinds := make([]notify.Kind, 0)
	for _, n := range f.sched.Bus().Recent(0) {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, notify.KindConfirm)
}

// slowClient tracks peak concurrent Generate calls.
type slowClient struct {
	mu   sync.Mutex
	cur  int
	peak int
}

func (c *slowClient) Name() string { return "slow" }
func (c *slowClient) Generate(context.Context, []provider.Message) (string, error) {
	c.mu.Lock()
	c.cur++
	if c.cur > c.peak {
		c.peak = c.cur
	}
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.cur--
	c.mu.Unlock()
	return "ok", nil
}
func (c *slowClient) Stream(context.Context, []provider.Message) (<-chan provider.Chunk, error) {
	return nil, errors.New("not implemented")
}

func TestRunSwarm_BoundedConcurrency(t *testing.T) {
	model := &slowClient{}
	f := newFixture(t, model, 2)
	submitN(t, f, 6)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	assert.LessOrEqual(t, model.peak, 2)
	assert.Greater(t, model.peak, 0)
}

func TestAssign_SpecificAgent(t *testing.T) {
	f := newFixture(t, mock.New(), 1)
	ids := submitN(t, f, 1)

	require.NoError(t, f.sched.Assign(context.Background(), ids[0], "boreas"))
	f.sched.Wait()

	got, err := f.store.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "boreas", got.Agent)
	assert.Equal(t, task.StatusDone, got.Status)
}

func TestAssign_UnknownAgent(t *testing.T) {
	f := newFixture(t, mock.New(), 1)
	ids := submitN(t, f, 1)

	err := f.sched.Assign(context.Background(), ids[0], "nobody")
	assert.Error(t, err)
}

func TestAssign_RejectsNonPendingTask(t *testing.T) {
	f := newFixture(t, mock.New(), 1)
	ids := submitN(t, f, 1)

	require.NoError(t, f.sched.RunSwarm(context.Background()))

	// Task is terminal now; a second assignment must fail cleanly.
	err := f.sched.Assign(context.Background(), ids[0], "frost")
	assert.ErrorIs(t, err, task.ErrInvalidTransition)
}

func TestSnapshot(t *testing.T) {
	model := mock.NewScripted(mock.Turn{Err: errors.New("boom")}, mock.Turn{Text: "ok"})
	f := newFixture(t, model, 1)
	submitN(t, f, 2)
	_, err := f.sched.Submit("left pending", task.PriorityLow, nil, "")
	require.NoError(t, err)

	// Run only the first two tasks.
	pending := task.StatusPending
	tasks, err := f.store.List(task.Filter{Status: &pending})
	require.NoError(t, err)
	for _, tk := range tasks[:2] {
		ag := f.pool.Next()
		require.NoError(t, f.sched.Assign(context.Background(), tk.ID, ag.ID))
	}
	f.sched.Wait()

	snap, err := f.sched.Snapshot(10)
	require.NoError(t, err)
	assert.Len(t, snap.Tasks, 3)
	assert.Len(t, snap.Agents, 3)
	assert.Equal(t, 1, snap.Counts[task.StatusFailed])
	assert.Equal(t, 1, snap.Counts[task.StatusDone])
	assert.Equal(t, 1, snap.Counts[task.StatusPending])
	assert.NotEmpty(t, snap.Notifications)
}

func historyActions(t *task.Task) []string {
	actions := make([]string, 0, len(t.History))
	for _, h := range t.History {
		actions = append(actions, h.Action)
	}
	return actions
}
