package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoCodeAlone/coldfront/toolrun"
)

const maxFileRead = 10000

// validatePath resolves relPath inside the workspace and rejects
// traversal outside it.
func validatePath(workspace, relPath string) (string, error) {
	if workspace == "" {
		return "", fmt.Errorf("no workspace configured")
	}
	abs, err := filepath.Abs(filepath.Join(workspace, filepath.Clean(relPath)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	ws, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("invalid workspace: %w", err)
	}
	if abs != ws && !strings.HasPrefix(abs, ws+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed: %s", relPath)
	}
	return abs, nil
}

// FileRead reads a file from the workspace.
type FileRead struct {
	Workspace string
}

func (t *FileRead) Name() string        { return "file_read" }
func (t *FileRead) Description() string { return "Read a file from the workspace" }
func (t *FileRead) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "path", Desc: "Relative file path"}}
}
func (t *FileRead) NeedsConfirm() bool { return false }

func (t *FileRead) Execute(_ context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no path provided")
	}
	path, err := validatePath(t.Workspace, args[0])
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return truncate(string(data), maxFileRead), nil
}

// FileWrite creates or overwrites a file in the workspace.
type FileWrite struct {
	Workspace string
}

func (t *FileWrite) Name() string        { return "file_write" }
func (t *FileWrite) Description() string { return "Write or create a file in the workspace" }
func (t *FileWrite) Params() []toolrun.Param {
	return []toolrun.Param{
		{Name: "path", Desc: "Relative file path"},
		{Name: "content", Desc: "File content"},
	}
}
func (t *FileWrite) NeedsConfirm() bool { return false }

func (t *FileWrite) Execute(_ context.Context, args []string) (string, error) {
	if len(args) < 1 || args[0] == "" {
		return "", fmt.Errorf("no path provided")
	}
	content := ""
	if len(args) > 1 {
		content = args[1]
	}
	path, err := validatePath(t.Workspace, args[0])
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", args[0], err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), args[0]), nil
}

// FileAppend appends to a file in the workspace, creating it if needed.
type FileAppend struct {
	Workspace string
}

func (t *FileAppend) Name() string        { return "file_append" }
func (t *FileAppend) Description() string { return "Append content to a file in the workspace" }
func (t *FileAppend) Params() []toolrun.Param {
	return []toolrun.Param{
		{Name: "path", Desc: "Relative file path"},
		{Name: "content", Desc: "Content to append"},
	}
}
func (t *FileAppend) NeedsConfirm() bool { return false }

func (t *FileAppend) Execute(_ context.Context, args []string) (string, error) {
	if len(args) < 1 || args[0] == "" {
		return "", fmt.Errorf("no path provided")
	}
	content := ""
	if len(args) > 1 {
		content = args[1]
	}
	path, err := validatePath(t.Workspace, args[0])
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("append to %s: %w", args[0], err)
	}
	return fmt.Sprintf("appended %d bytes to %s", len(content), args[0]), nil
}

// FileList lists a workspace directory.
type FileList struct {
	Workspace string
}

func (t *FileList) Name() string        { return "file_list" }
func (t *FileList) Description() string { return "List files in a workspace directory" }
func (t *FileList) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "path", Desc: "Relative directory path (default: workspace root)"}}
}
func (t *FileList) NeedsConfirm() bool { return false }

func (t *FileList) Execute(_ context.Context, args []string) (string, error) {
	rel := "."
	if len(args) > 0 && args[0] != "" {
		rel = args[0]
	}
	path, err := validatePath(t.Workspace, rel)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", rel, err)
	}

	var lines []string
	for i, e := range entries {
		if i >= 100 {
			lines = append(lines, fmt.Sprintf("  ... (%d total entries)", len(entries)))
			break
		}
		kind := "DIR"
		if !e.IsDir() {
			if info, err := e.Info(); err == nil {
				kind = fmt.Sprintf("%dB", info.Size())
			} else {
				kind = "?"
			}
		}
		lines = append(lines, fmt.Sprintf("  %s  (%s)", e.Name(), kind))
	}
	return fmt.Sprintf("contents of %s:\n%s", rel, strings.Join(lines, "\n")), nil
}

// FileDelete removes a file or directory from the workspace. Deletion
// is irreversible, so it is gated behind confirmation.
type FileDelete struct {
	Workspace string
}

func (t *FileDelete) Name() string        { return "file_delete" }
func (t *FileDelete) Description() string { return "Delete a file or directory in the workspace" }
func (t *FileDelete) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "path", Desc: "Relative path to delete"}}
}
func (t *FileDelete) NeedsConfirm() bool { return true }

func (t *FileDelete) Execute(_ context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no path provided")
	}
	path, err := validatePath(t.Workspace, args[0])
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("not found: %s", args[0])
	}
	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return "", fmt.Errorf("delete directory %s: %w", args[0], err)
		}
		return fmt.Sprintf("deleted directory %s", args[0]), nil
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("delete %s: %w", args[0], err)
	}
	return fmt.Sprintf("deleted %s", args[0]), nil
}
