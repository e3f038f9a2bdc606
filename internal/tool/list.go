package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/driftcode/agentserver/pkg/types"
)

const listDirDescription = `Lists the immediate contents of a directory.

Usage:
- The path parameter is resolved relative to the working directory
- Returns entries with name and type ("file" or "dir")
- Skips the same default-ignored paths as grep and find_files`

type listDirInput struct {
	Path string `json:"path,omitempty"`
}

type dirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func listDirDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "list_dir",
		Description: listDirDescription,
		Category:    types.CategoryFileOps,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Directory path, relative to the working directory"}
			}
		}`),
	}
}

func listDirHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	var params listDirInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	full := resolveWorkingPath(execCtx.WorkingDir, params.Path)
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", params.Path, err)
	}

	out := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		if shouldIgnore(e.Name(), e.IsDir(), defaultIgnorePatterns) {
			continue
		}
		kind := "file"
		if e.IsDir() {
			kind = "dir"
		}
		out = append(out, dirEntry{Name: e.Name(), Type: kind})
	}
	return out, nil
}
