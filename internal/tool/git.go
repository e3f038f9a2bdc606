package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/driftcode/agentserver/pkg/types"
)

const maxGitOutputBytes = 5 * 1024 * 1024

type gitInput struct {
	Path string `json:"path,omitempty"`
}

func gitDiffDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "git_diff",
		Description: "Shows the working-tree diff for the session's repository.",
		Category:    types.CategoryGit,
		InputSchema: json.RawMessage(`{"type": "object", "properties": {"path": {"type": "string"}}}`),
	}
}

func gitStatusDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "git_status",
		Description: "Shows the short-form working-tree status for the session's repository.",
		Category:    types.CategoryGit,
		InputSchema: json.RawMessage(`{"type": "object", "properties": {"path": {"type": "string"}}}`),
	}
}

func gitLogDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "git_log",
		Description: "Shows the last 20 commits for the session's repository.",
		Category:    types.CategoryGit,
		InputSchema: json.RawMessage(`{"type": "object", "properties": {"path": {"type": "string"}}}`),
	}
}

type gitResult struct {
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	Diff       string `json:"diff,omitempty"`
	Status     string `json:"status,omitempty"`
	Log        string `json:"log,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	HasChanges bool   `json:"hasChanges,omitempty"`
}

func gitDiffHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	cwd, err := gitCwd(input, execCtx)
	if err != nil {
		return nil, err
	}
	out, stderr, err := runGit(ctx, cwd, 30*time.Second, "diff")
	if err != nil {
		return nil, err
	}
	return gitResult{Command: "git diff", Cwd: cwd, Diff: out, Stderr: stderr, HasChanges: strings.TrimSpace(out) != ""}, nil
}

func gitStatusHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	cwd, err := gitCwd(input, execCtx)
	if err != nil {
		return nil, err
	}
	out, stderr, err := runGit(ctx, cwd, 10*time.Second, "status", "--short")
	if err != nil {
		return nil, err
	}
	return gitResult{Command: "git status --short", Cwd: cwd, Status: out, Stderr: stderr, HasChanges: strings.TrimSpace(out) != ""}, nil
}

func gitLogHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	cwd, err := gitCwd(input, execCtx)
	if err != nil {
		return nil, err
	}
	out, stderr, err := runGit(ctx, cwd, 10*time.Second, "log", "-20", "--oneline")
	if err != nil {
		return nil, err
	}
	return gitResult{Command: "git log -20 --oneline", Cwd: cwd, Log: out, Stderr: stderr}, nil
}

func gitCwd(input json.RawMessage, execCtx *ExecutionContext) (string, error) {
	var params gitInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &params); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}
	return resolveWorkingPath(execCtx.WorkingDir, params.Path), nil
}

// runGit invokes git with an explicit argument array — never through a
// shell — bounded by timeout and a 5 MB output cap.
func runGit(ctx context.Context, cwd string, timeout time.Duration, args ...string) (stdout, stderr string, err error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "git", args...)
	cmd.Dir = cwd

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &capWriter{buf: &outBuf, limit: maxGitOutputBytes}
	cmd.Stderr = &capWriter{buf: &errBuf, limit: maxGitOutputBytes}

	runErr := cmd.Run()
	if cmdCtx.Err() != nil {
		return "", "", fmt.Errorf("git %s timed out after %s", strings.Join(args, " "), timeout)
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return "", "", fmt.Errorf("git %s: %w", strings.Join(args, " "), runErr)
		}
	}
	return outBuf.String(), errBuf.String(), nil
}

// capWriter truncates writes once limit bytes have been written.
type capWriter struct {
	buf     *bytes.Buffer
	limit   int
	written int
}

func (w *capWriter) Write(p []byte) (int, error) {
	if w.written >= w.limit {
		return len(p), nil
	}
	remaining := w.limit - w.written
	if remaining > len(p) {
		remaining = len(p)
	}
	n, err := w.buf.Write(p[:remaining])
	w.written += n
	return len(p), err
}
