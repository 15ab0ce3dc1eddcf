package toolrun

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MaxChainIterations bounds the parse/execute/re-prompt loop so tool
// chaining always terminates.
const MaxChainIterations = 5

// DefaultDenylist rejects commands that are never acceptable, with or
// without confirmation. Matching is case-insensitive substring over the
// joined arguments of a call.
var DefaultDenylist = []string{
	"rm -rf /",
	"rm -fr /",
	"rm -rf ~",
	"mkfs",
	"dd if=/dev/zero",
	"format c:",
	"del /f /s /q c:\\",
	":(){ :|:& };:",
	"killall -9",
	"kill -9 -1",
	"shutdown -h",
	"> /dev/sda",
}

// Runtime dispatches parsed calls to registered tools under the safety
// policy: denylisted calls are rejected outright, and tools flagged
// NeedsConfirm are deferred to the caller instead of executed.
type Runtime struct {
	registry *Registry
	denylist []string
	log      *zap.Logger
}

// NewRuntime builds a runtime over the registry. The extra denylist
// entries are appended to DefaultDenylist.
func NewRuntime(registry *Registry, extraDeny []string, log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	deny := append(append([]string(nil), DefaultDenylist...), extraDeny...)
	return &Runtime{registry: registry, denylist: deny, log: log}
}

// Registry returns the underlying tool registry.
func (rt *Runtime) Registry() *Registry { return rt.registry }

// Parse extracts tool calls from model output.
func (rt *Runtime) Parse(text string) []Call { return Parse(text) }

// Execute runs a single call. It never returns an error: every failure
// mode (unknown tool, denylist hit, handler error) is captured in the
// Result so sibling calls keep executing.
func (rt *Runtime) Execute(ctx context.Context, call Call, confirmed bool) Result {
	tool, ok := rt.registry.Get(call.Name)
	if !ok {
		rt.log.Warn("unknown tool", zap.String("tool", call.Name))
		return Result{
			ToolName: call.Name,
			Output:   fmt.Sprintf("unknown tool: %s", call.Name),
		}
	}

	if matched, hit := rt.denied(call); hit {
		rt.log.Warn("tool call blocked by denylist",
			zap.String("tool", call.Name),
			zap.String("matched", matched))
		return Result{
			ToolName: call.Name,
			Output:   fmt.Sprintf("blocked by safety policy: arguments match %q", matched),
		}
	}

	if tool.NeedsConfirm() && !confirmed {
		return Result{
			ToolName:     call.Name,
			NeedsConfirm: true,
			Output:       fmt.Sprintf("confirmation required before running %s", call.Raw),
		}
	}

	rt.log.Debug("executing tool",
		zap.String("tool", call.Name),
		zap.Int("args", len(call.Args)))
	out, err := tool.Execute(ctx, call.Args)
	if err != nil {
		rt.log.Warn("tool execution failed", zap.String("tool", call.Name), zap.Error(err))
		return Result{ToolName: call.Name, Output: err.Error()}
	}
	return Result{ToolName: call.Name, Success: true, Output: out}
}

// ExecuteAll runs calls in order, synchronously, each independent of
// the others' outcomes.
func (rt *Runtime) ExecuteAll(ctx context.Context, calls []Call, confirmed bool) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, rt.Execute(ctx, call, confirmed))
	}
	return results
}

// denied reports whether any denylist entry occurs in the call's
// arguments.
func (rt *Runtime) denied(call Call) (string, bool) {
	joined := strings.ToLower(strings.Join(call.Args, " "))
	for _, entry := range rt.denylist {
		if strings.Contains(joined, strings.ToLower(entry)) {
			return entry, true
		}
	}
	return "", false
}

// FormatResults renders results for feeding back into a model prompt.
func FormatResults(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case r.NeedsConfirm:
			parts = append(parts, fmt.Sprintf("[%s] %s", r.ToolName, r.Output))
		case r.Success:
			parts = append(parts, fmt.Sprintf("[ok %s] %s", r.ToolName, r.Output))
		default:
			parts = append(parts, fmt.Sprintf("[failed %s] %s", r.ToolName, r.Output))
		}
	}
	return strings.Join(parts, "\n")
}

// HasPendingConfirmations reports whether any result was deferred for
// user confirmation.
func HasPendingConfirmations(results []Result) bool {
	for _, r := range results {
		if r.NeedsConfirm {
			return true
		}
	}
	return false
}
