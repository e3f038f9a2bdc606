package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftcode/agentserver/pkg/types"
)

const writeFileDescription = `Writes content to a file on the local filesystem, overwriting it if
it already exists and creating any missing parent directories.`

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type writeFileOutput struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

func writeFileDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "write_file",
		Description: writeFileDescription,
		Category:    types.CategoryFileOps,
		HighFreq:    true,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path, relative to the working directory"},
				"content": {"type": "string", "description": "Content to write"}
			},
			"required": ["path", "content"]
		}`),
	}
}

func writeFileHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	var params writeFileInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	full := resolveWorkingPath(execCtx.WorkingDir, params.Path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("create parent directories for %s: %w", params.Path, err)
	}
	if err := os.WriteFile(full, []byte(params.Content), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", params.Path, err)
	}

	return writeFileOutput{
		Path:   relativeToDir(execCtx.WorkingDir, full),
		Status: "ok",
	}, nil
}
