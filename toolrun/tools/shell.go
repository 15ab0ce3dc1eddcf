// Package tools provides the built-in tool set for the swarm runtime:
// shell commands, workspace file access, HTTP, and browser control.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/GoCodeAlone/coldfront/toolrun"
)

const (
	defaultCommandTimeout = 120 * time.Second
	maxStdout             = 4000
	maxStderr             = 2000
)

// RunCommand executes a shell command in the workspace.
type RunCommand struct {
	Workspace string
	Timeout   time.Duration
}

func (t *RunCommand) Name() string        { return "run_command" }
func (t *RunCommand) Description() string { return "Run a shell command in the workspace" }
func (t *RunCommand) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "cmd", Desc: "The command to run"}}
}
func (t *RunCommand) NeedsConfirm() bool { return false }

func (t *RunCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no command provided")
	}
	command := strings.Join(args, " ")

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if t.Workspace != "" {
		cmd.Dir = t.Workspace
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out (%s)", timeout)
	}

	output := truncate(stdout.String(), maxStdout)
	if stderr.Len() > 0 {
		output += "\n[stderr] " + truncate(stderr.String(), maxStderr)
	}
	output = strings.TrimSpace(output)
	if output == "" {
		output = "(no output)"
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), output)
		}
		return "", fmt.Errorf("exec command: %w", err)
	}
	return output, nil
}

// truncate caps s at n characters, noting the original length.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + fmt.Sprintf("\n... (truncated, %d total chars)", len(s))
}
