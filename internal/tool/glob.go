package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/driftcode/agentserver/pkg/types"
)

const findFilesDescription = `Finds files by glob pattern ("*", "**", "?").

Usage:
- path defaults to the working directory
- Stops after maxResults matches (default 100)`

const defaultFindMaxResults = 100

type findFilesInput struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type foundFile struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

type findFilesOutput struct {
	Pattern    string      `json:"pattern"`
	SearchPath string      `json:"searchPath"`
	FileCount  int         `json:"fileCount"`
	Files      []foundFile `json:"files"`
	Engine     string      `json:"engine"`
	Truncated  bool        `json:"truncated"`
}

func findFilesDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "find_files",
		Description: findFilesDescription,
		Category:    types.CategorySearch,
		HighFreq:    true,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string", "description": "Glob pattern, e.g. \"**/*.go\""},
				"path": {"type": "string"},
				"maxResults": {"type": "integer"}
			},
			"required": ["pattern"]
		}`),
	}
}

func findFilesHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	var params findFilesInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultFindMaxResults
	}

	searchPath := resolveWorkingPath(execCtx.WorkingDir, params.Path)

	var files []foundFile
	truncated := false

	walkErr := filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != searchPath && shouldIgnore(d.Name(), d.IsDir(), defaultIgnorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if truncated {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(searchPath, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		matched, err := doublestar.Match(params.Pattern, rel)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		if !matched {
			return nil
		}

		size := int64(0)
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, foundFile{Path: rel, Type: "file", Size: size})
		if len(files) >= maxResults {
			truncated = true
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("find_files %s: %w", params.Path, walkErr)
	}
	if _, err := os.Stat(searchPath); err != nil {
		return nil, fmt.Errorf("find_files %s: %w", params.Path, err)
	}

	return findFilesOutput{
		Pattern:    params.Pattern,
		SearchPath: relativeToDir(execCtx.WorkingDir, searchPath),
		FileCount:  len(files),
		Files:      files,
		Engine:     "doublestar",
		Truncated:  truncated,
	}, nil
}
