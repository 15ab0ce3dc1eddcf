// Command coldfront is the swarm CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GoCodeAlone/coldfront/agent"
	"github.com/GoCodeAlone/coldfront/config"
	"github.com/GoCodeAlone/coldfront/internal/version"
	"github.com/GoCodeAlone/coldfront/notify"
	"github.com/GoCodeAlone/coldfront/provider"
	"github.com/GoCodeAlone/coldfront/provider/mock"
	"github.com/GoCodeAlone/coldfront/provider/ollama"
	"github.com/GoCodeAlone/coldfront/provider/openai"
	"github.com/GoCodeAlone/coldfront/swarm"
	"github.com/GoCodeAlone/coldfront/task"
	"github.com/GoCodeAlone/coldfront/toolrun"
	"github.com/GoCodeAlone/coldfront/toolrun/tools"
)

func main() {
	configPath := flag.String("config", "coldfront.yaml", "path to config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	rest := args[1:]

	if cmd == "version" {
		fmt.Printf("coldfront %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.BuildDate)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	app, err := newApp(cfg)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	switch cmd {
	case "submit":
		err = app.cmdSubmit(rest)
	case "tasks":
		err = app.cmdTasks(rest)
	case "task":
		err = app.cmdTask(rest)
	case "swarm":
		err = app.cmdSwarm(rest)
	case "assign":
		err = app.cmdAssign(rest)
	case "status":
		err = app.cmdStatus(rest)
	case "agents":
		err = app.cmdAgents(rest)
	case "complete":
		err = app.cmdComplete(rest)
	case "archive":
		err = app.cmdArchive(rest)
	case "delete":
		err = app.cmdDelete(rest)
	case "notifications":
		err = app.cmdNotifications(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprint(os.Stderr, `coldfront — task swarm CLI

Usage:
  coldfront [flags] <command> [args]

Flags:
  --config <path>  config file (default: coldfront.yaml)

Commands:
  version                         print version
  submit <name>                   submit a task (-priority, -due, -notes)
  tasks                           list tasks (-status)
  task <id>                       show one task with history
  swarm                           run all pending tasks across the roster
  assign <task-id> <agent-id>     run one task on a specific agent
  status                          swarm snapshot
  agents                          list the agent roster
  complete <id>                   manually mark an active task done
  archive                         remove completed tasks
  delete <id>                     delete a task
  notifications                   show recent notifications (-n)
`)
}

// app wires the store, roster, tool runtime, model client and
// scheduler for one CLI invocation.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *task.SQLiteStore
	pool  *agent.Pool
	sched *swarm.Scheduler
	title cases.Caser
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	store, err := task.NewSQLiteStore(filepath.Join(cfg.DataDir, "tasks.db"))
	if err != nil {
		return nil, err
	}

	pool, err := agent.NewPool(cfg.Agents)
	if err != nil {
		return nil, err
	}

	reg := toolrun.NewRegistry()
	opts := tools.Options{Workspace: cfg.Workspace, Client: http.DefaultClient}
	if cfg.Tools.Browser {
		opts.Browser = tools.NewBrowserManager(true)
	}
	tools.RegisterAll(reg, opts)

	model, err := newModel(cfg.Provider)
	if err != nil {
		return nil, err
	}

	sched, err := swarm.New(swarm.Options{
		Store:      store,
		Pool:       pool,
		Runtime:    toolrun.NewRuntime(reg, cfg.Tools.Denylist, log),
		Model:      model,
		Bus:        notify.NewBus(0),
		MaxWorkers: cfg.Swarm.MaxWorkers,
		Log:        log,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		pool:  pool,
		sched: sched,
		title: cases.Title(language.English),
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.log.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newModel(cfg config.ProviderConfig) (provider.Client, error) {
	switch cfg.Type {
	case "", "ollama":
		return ollama.New(cfg.BaseURL, cfg.Model, cfg.Timeout.Std()), nil
	case "openai":
		return openai.New(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout.Std()), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// --- submit ---

func (a *app) cmdSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	priority := fs.String("priority", "medium", "critical, high, medium or low")
	due := fs.String("due", "", "due time, RFC3339 or YYYY-MM-DD")
	notes := fs.String("notes", "", "free-form notes")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("usage: coldfront submit <name> [-priority p] [-due t] [-notes n]")
	}
	name := strings.Join(fs.Args(), " ")

	pri, err := task.ParsePriority(*priority)
	if err != nil {
		return err
	}
	var dueAt *time.Time
	if *due != "" {
		t, err := parseDue(*due)
		if err != nil {
			return err
		}
		dueAt = &t
	}

	id, err := a.sched.Submit(name, pri, dueAt, *notes)
	if err != nil {
		return err
	}
	fmt.Printf("submitted task %s\n", id)
	return nil
}

func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid due time %q", s)
}

// --- tasks ---

func (a *app) cmdTasks(args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	status := fs.String("status", "", "filter by status")
	_ = fs.Parse(args)

	filter := task.Filter{}
	if *status != "" {
		st := task.Status(*status)
		filter.Status = &st
	}
	tasks, err := a.store.List(filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}

	fmt.Printf("%-36s %-28s %-9s %-9s %-8s %9s\n", "ID", "NAME", "PRIORITY", "STATUS", "AGENT", "PROGRESS")
	fmt.Println(strings.Repeat("-", 104))
	for _, t := range tasks {
		fmt.Printf("%-36s %-28s %-9s %-9s %-8s %8d%%\n",
			t.ID, clip(t.Name, 27), t.Priority, t.Status, t.Agent, t.Progress)
	}
	return nil
}

func (a *app) cmdTask(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coldfront task <id>")
	}
	t, err := a.store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  [%s]\n", t.Name, t.ID)
	fmt.Printf("  %s: %s\n", a.title.String("priority"), t.Priority)
	fmt.Printf("  %s: %s (%d%%)\n", a.title.String("status"), t.Status, t.Progress)
	if t.Agent != "" {
		fmt.Printf("  %s: %s\n", a.title.String("agent"), t.Agent)
	}
	if t.Due != nil {
		fmt.Printf("  %s: %s\n", a.title.String("due"), t.Due.Local().Format(time.RFC1123))
	}
	if t.Notes != "" {
		fmt.Printf("  %s: %s\n", a.title.String("notes"), t.Notes)
	}
	if len(t.History) > 0 {
		fmt.Println("  History:")
		for _, h := range t.History {
			fmt.Printf("    %s  %-8s %-13s %s\n",
				h.Time.Local().Format("15:04:05"), h.Agent, h.Action, h.Note)
		}
	}
	return nil
}

// --- swarm ---

func (a *app) cmdSwarm(args []string) error {
	fs := flag.NewFlagSet("swarm", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := notify.NewOverdueWatcher(a.store, a.sched.Bus(), a.cfg.Swarm.OverdueCheckInterval.Std(), a.log)
	go watcher.Run(ctx)

	if err := a.sched.RunSwarm(ctx); err != nil {
		return err
	}
	return a.printSnapshot()
}

func (a *app) cmdAssign(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: coldfront assign <task-id> <agent-id>")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.sched.Assign(ctx, args[0], args[1]); err != nil {
		return err
	}
	a.sched.Wait()

	t, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("task %s finished with status %s\n", t.ID, t.Status)
	return nil
}

// --- status ---

func (a *app) cmdStatus(_ []string) error {
	return a.printSnapshot()
}

func (a *app) printSnapshot() error {
	snap, err := a.sched.Snapshot(10)
	if err != nil {
		return err
	}

	fmt.Println("Tasks:")
	for _, st := range []task.Status{task.StatusPending, task.StatusActive, task.StatusDone, task.StatusFailed} {
		fmt.Printf("  %-8s %d\n", a.title.String(string(st)), snap.Counts[st])
	}

	fmt.Println("Agents:")
	for _, ag := range snap.Agents {
		fmt.Printf("  %-10s %-10s %s\n", ag.Name, ag.Status, ag.Specialty)
	}

	if len(snap.Notifications) > 0 {
		fmt.Println("Recent notifications:")
		for _, n := range snap.Notifications {
			fmt.Printf("  %s  %-16s %s\n",
				n.Timestamp.Local().Format("15:04:05"), n.Kind, n.Message)
		}
	}
	return nil
}

func (a *app) cmdAgents(_ []string) error {
	fmt.Printf("%-10s %-12s %s\n", "ID", "NAME", "SPECIALTY")
	fmt.Println(strings.Repeat("-", 50))
	for _, ag := range a.pool.List() {
		fmt.Printf("%-10s %-12s %s\n", ag.ID, ag.Name, ag.Specialty)
	}
	return nil
}

// --- maintenance ---

func (a *app) cmdComplete(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coldfront complete <id>")
	}
	err := a.store.Mutate(args[0], func(t *task.Task) error {
		t.Status = task.StatusDone
		t.Progress = 100
		t.AppendHistory(t.Agent, "completed", "marked done manually")
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("task %s marked done\n", args[0])
	return nil
}

func (a *app) cmdArchive(_ []string) error {
	n, err := a.store.ArchiveCompleted()
	if err != nil {
		return err
	}
	fmt.Printf("archived %d completed task(s)\n", n)
	return nil
}

func (a *app) cmdDelete(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coldfront delete <id>")
	}
	if err := a.store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted task %s\n", args[0])
	return nil
}

func (a *app) cmdNotifications(args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	limit := fs.Int("n", 20, "how many to show")
	_ = fs.Parse(args)

	recent := a.sched.Bus().Recent(*limit)
	if len(recent) == 0 {
		fmt.Println("no notifications")
		return nil
	}
	for _, n := range recent {
		fmt.Printf("%s  %-16s %s\n", n.Timestamp.Local().Format(time.RFC3339), n.Kind, n.Message)
	}
	return nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
