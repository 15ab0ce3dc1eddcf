// Package toolrun parses tool calls embedded in model output and
// executes them against a registry of handlers.
package toolrun

import "context"

// Call is a parsed tool invocation: a name and its ordered arguments.
type Call struct {
	Name string
	Args []string
	Raw  string // the original call text, kept for task history
}

// Result is the outcome of executing one Call.
type Result struct {
	ToolName     string `json:"tool_name"`
	Success      bool   `json:"success"`
	Output       string `json:"output"`
	NeedsConfirm bool   `json:"needs_confirm"`
}

// Param describes one positional tool parameter for the system prompt.
type Param struct {
	Name string
	Desc string
}

// Tool is one executable capability. Tools are registered at startup,
// so adding one is a compile-time-checked registration rather than a
// string match.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Params returns the ordered positional parameters.
	Params() []Param

	// NeedsConfirm marks destructive tools. The runtime never executes
	// them without an explicit confirmation step.
	NeedsConfirm() bool

	// Execute runs the tool with positional arguments as parsed from
	// the call text.
	Execute(ctx context.Context, args []string) (string, error)
}
