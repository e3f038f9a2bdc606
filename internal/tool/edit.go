package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/driftcode/agentserver/pkg/types"
)

const editFileDescription = `Applies a sequence of exact string replacements to a file.

Usage:
- Each edit is {old_text, new_text}; edits are applied in order
- An edit whose old_text is not found in the current buffer fails the
  whole operation — nothing is written
- An old_text occurring more than once is fully replaced, with a
  warning attached noting how many occurrences were changed`

type editOp struct {
	OldText string `json:"old_text"`
	NewText string `json:"new_text"`
}

type editFileInput struct {
	Path  string   `json:"path"`
	Edits []editOp `json:"edits"`
}

type editDetail struct {
	OldText      string `json:"oldText"`
	Applied      bool   `json:"applied"`
	Replacements int    `json:"replacements"`
	Warning      string `json:"warning,omitempty"`
}

type editFileOutput struct {
	Path              string       `json:"path"`
	OldContent        string       `json:"oldContent"`
	NewContent        string       `json:"newContent"`
	EditsApplied      int          `json:"editsApplied"`
	TotalReplacements int          `json:"totalReplacements"`
	EditDetails       []editDetail `json:"editDetails"`
	Diff              string       `json:"diff,omitempty"`
	Success           bool         `json:"success"`
}

func editFileDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "edit_file",
		Description: editFileDescription,
		Category:    types.CategoryFileOps,
		HighFreq:    true,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path, relative to the working directory"},
				"edits": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"old_text": {"type": "string"},
							"new_text": {"type": "string"}
						},
						"required": ["old_text", "new_text"]
					}
				}
			},
			"required": ["path", "edits"]
		}`),
	}
}

func editFileHandler(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
	var params editFileInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	full := resolveWorkingPath(execCtx.WorkingDir, params.Path)
	original, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", params.Path, err)
	}

	originalText := string(original)
	buffer := originalText
	details := make([]editDetail, 0, len(params.Edits))
	totalReplacements := 0

	for _, edit := range params.Edits {
		count := strings.Count(buffer, edit.OldText)
		if count == 0 {
			return nil, fmt.Errorf("edit_file: old_text not found in %s: %q%s", params.Path, truncate(edit.OldText, 50), closestMatchHint(buffer, edit.OldText))
		}

		detail := editDetail{OldText: edit.OldText, Applied: true, Replacements: count}
		if count > 1 {
			detail.Warning = fmt.Sprintf("Multiple occurrences (%d) were replaced", count)
		} else if !strings.Contains(originalText, edit.OldText) {
			detail.Warning = "old_text did not exist in the original file; it was introduced by an earlier edit in this request"
		}

		buffer = strings.ReplaceAll(buffer, edit.OldText, edit.NewText)
		totalReplacements += count
		details = append(details, detail)
	}

	if err := os.WriteFile(full, []byte(buffer), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", params.Path, err)
	}

	return editFileOutput{
		Path:              relativeToDir(execCtx.WorkingDir, full),
		OldContent:        originalText,
		NewContent:        buffer,
		EditsApplied:      len(details),
		TotalReplacements: totalReplacements,
		EditDetails:       details,
		Diff:              unifiedDiff(params.Path, originalText, buffer),
		Success:           true,
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// closestMatchHint looks for the line in buffer most similar to
// target and, above a similarity threshold, reports it as a
// diagnostic hint alongside the hard failure.
func closestMatchHint(buffer, target string) string {
	lines := strings.Split(buffer, "\n")
	best := ""
	bestScore := 0.0
	for _, line := range lines {
		score := similarity(line, target)
		if score > bestScore {
			bestScore = score
			best = line
		}
	}
	if best == "" || bestScore < 0.6 {
		return ""
	}
	return fmt.Sprintf(" (closest match, %.0f%% similar: %q)", bestScore*100, truncate(best, 50))
}

func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	return 1 - float64(dist)/float64(maxLen)
}

// unifiedDiff renders a best-effort unified diff between before and
// after for the edit_file response's diagnostic "diff" field.
func unifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	patches := dmp.PatchMake(before, diffs)
	text := dmp.PatchToText(patches)
	if text == "" {
		return ""
	}
	return fmt.Sprintf("--- %s\n+++ %s\n%s", path, path, text)
}
