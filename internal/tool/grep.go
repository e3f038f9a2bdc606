package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/driftcode/agentserver/pkg/types"
)

const grepDescription = `Searches file contents for a pattern.

Usage:
- Pattern is matched literally by default; set regex:true to treat it as a regular expression
- path defaults to the working directory
- Stops after maxResults matches (default 50)`

const defaultGrepMaxResults = 50

type grepInput struct {
	Pattern       string `json:"pattern"`
	Path          string `json:"path,omitempty"`
	Regex         bool   `json:"regex,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	MaxResults    int    `json:"maxResults,omitempty"`
}

type grepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

type grepOutput struct {
	Pattern    string      `json:"pattern"`
	SearchPath string      `json:"searchPath"`
	MatchCount int         `json:"matchCount"`
	Matches    []grepMatch `json:"matches"`
	Engine     string      `json:"engine"`
	Truncated  bool        `json:"truncated"`
}

func grepDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "grep",
		Description: grepDescription,
		Category:    types.CategorySearch,
		HighFreq:    true,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string"},
				"path": {"type": "string", "description": "Directory to search, relative to the working directory"},
				"regex": {"type": "boolean", "description": "Treat pattern as a regular expression"},
				"caseSensitive": {"type": "boolean"},
				"maxResults": {"type": "integer"}
			},
			"required": ["pattern"]
		}`),
	}
}

func grepHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	var params grepInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultGrepMaxResults
	}

	searchPath := resolveWorkingPath(execCtx.WorkingDir, params.Path)

	matchLine, err := buildLineMatcher(params.Pattern, params.Regex, params.CaseSensitive)
	if err != nil {
		return nil, fmt.Errorf("grep: %w", err)
	}

	var matches []grepMatch
	truncated := false

	walkErr := filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if path != searchPath && shouldIgnore(d.Name(), d.IsDir(), defaultIgnorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if truncated {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if matchLine(line) {
				matches = append(matches, grepMatch{
					File:    relativeToDir(execCtx.WorkingDir, path),
					Line:    lineNum,
					Content: line,
				})
				if len(matches) >= maxResults {
					truncated = true
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("grep %s: %w", params.Path, walkErr)
	}

	return grepOutput{
		Pattern:    params.Pattern,
		SearchPath: relativeToDir(execCtx.WorkingDir, searchPath),
		MatchCount: len(matches),
		Matches:    matches,
		Engine:     "go",
		Truncated:  truncated,
	}, nil
}

func buildLineMatcher(pattern string, useRegex, caseSensitive bool) (func(string) bool, error) {
	if useRegex {
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		return re.MatchString, nil
	}

	needle := pattern
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	return func(line string) bool {
		if !caseSensitive {
			line = strings.ToLower(line)
		}
		return strings.Contains(line, needle)
	}, nil
}
