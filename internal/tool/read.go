package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/driftcode/agentserver/pkg/types"
)

const readFileDescription = `Reads a file from the local filesystem as UTF-8 text.

Usage:
- The path parameter is resolved relative to the session's working directory
- Returns the full file content; failure propagates the underlying I/O error`

type readFileInput struct {
	Path string `json:"path"`
}

type readFileOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func readFileDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "read_file",
		Description: readFileDescription,
		Category:    types.CategoryFileOps,
		HighFreq:    true,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path, relative to the working directory"}
			},
			"required": ["path"]
		}`),
	}
}

func readFileHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	var params readFileInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	full := resolveWorkingPath(execCtx.WorkingDir, params.Path)
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", params.Path, err)
	}

	return readFileOutput{
		Path:    relativeToDir(execCtx.WorkingDir, full),
		Content: string(content),
	}, nil
}
