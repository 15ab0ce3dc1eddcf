package swarm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GoCodeAlone/coldfront/agent"
	"github.com/GoCodeAlone/coldfront/notify"
	"github.com/GoCodeAlone/coldfront/provider"
	"github.com/GoCodeAlone/coldfront/task"
	"github.com/GoCodeAlone/coldfront/toolrun"
)

// Progress checkpoints a worker reports while a task is active.
const (
	progressStarted   = 10
	progressResponded = 40
	progressToolsDone = 70
	progressComplete  = 100
)

// worker drives one task from activation to a terminal status. Every
// failure is recorded on the task itself; nothing escapes to the
// scheduler loop.
type worker struct {
	store   task.Store
	runtime *toolrun.Runtime
	model   provider.Client
	bus     *notify.Bus
	log     *zap.Logger
}

// run executes the task's conversation and tool chain. It returns the
// final note for the task history; a returned error means the task
// must be marked failed.
func (w *worker) run(ctx context.Context, t *task.Task, ag agent.Agent) (string, error) {
	if err := w.setProgress(t.ID, ag.ID, progressStarted, "started"); err != nil {
		return "", err
	}

	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: w.systemPrompt(ag)},
		{Role: provider.RoleUser, Content: taskPrompt(t)},
	}

	response, err := w.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("model: %w", err)
	}
	if err := w.setProgress(t.ID, ag.ID, progressResponded, "model responded"); err != nil {
		return "", err
	}

	finalNote := summarize(response)
	for i := 0; i < toolrun.MaxChainIterations; i++ {
		calls := toolrun.Parse(response)
		if len(calls) == 0 {
			break
		}
		results := w.runtime.ExecuteAll(ctx, calls, false)
		w.recordResults(t.ID, ag.ID, results)

		if toolrun.HasPendingConfirmations(results) {
			w.bus.Publish(notify.KindConfirm, t.ID, ag.ID,
				"task %q has tool calls awaiting confirmation", t.Name)
			finalNote = "stopped: tool calls awaiting confirmation"
			break
		}

		messages = append(messages,
			provider.Message{Role: provider.RoleAssistant, Content: response},
			provider.Message{Role: provider.RoleUser, Content: toolrun.FormatResults(results)},
		)
		response, err = w.model.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("model: %w", err)
		}
		finalNote = summarize(response)
	}

	if err := w.setProgress(t.ID, ag.ID, progressToolsDone, "tool phase finished"); err != nil {
		return "", err
	}
	return finalNote, nil
}

func (w *worker) systemPrompt(ag agent.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a worker agent in a task swarm.", ag.Name)
	if ag.Specialty != "" {
		fmt.Fprintf(&b, " Your specialty is %s.", ag.Specialty)
	}
	b.WriteString(" Complete the task you are given, then report the outcome.\n\n")
	b.WriteString(w.runtime.Registry().Prompt())
	return b.String()
}

func taskPrompt(t *task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s (priority %s)", t.Name, t.Priority)
	if t.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", t.Notes)
	}
	return b.String()
}

func (w *worker) setProgress(taskID, agentID string, progress int, note string) error {
	return w.store.Mutate(taskID, func(t *task.Task) error {
		if progress > t.Progress {
			t.Progress = progress
		}
		t.AppendHistory(agentID, "progress", note)
		return nil
	})
}

// recordResults appends one history entry per tool result. Store
// failures here are logged, not fatal: losing a history line must not
// fail the task.
func (w *worker) recordResults(taskID, agentID string, results []toolrun.Result) {
	err := w.store.Mutate(taskID, func(t *task.Task) error {
		for _, r := range results {
			action := "tool_ok"
			switch {
			case r.NeedsConfirm:
				action = "tool_deferred"
			case !r.Success:
				action = "tool_failed"
			}
			t.AppendHistory(agentID, action, fmt.Sprintf("%s: %s", r.ToolName, summarize(r.Output)))
		}
		return nil
	})
	if err != nil {
		w.log.Warn("failed to record tool results",
			zap.String("task", taskID), zap.Error(err))
	}
}

// summarize trims a response down to a single history-sized note.
func summarize(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	const max = 200
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
