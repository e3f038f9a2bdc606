package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/driftcode/agentserver/pkg/types"
)

const loadToolsDescription = `Inspects or expands the set of tools loaded for this session.

Usage:
- Called with no category: lists every non-meta category with its
  description, tool count, and tool names
- Called with {category}: loads every tool in that category into this
  session's authorized set`

type loadToolsInput struct {
	Category string `json:"category,omitempty"`
}

type loadToolsDirectory struct {
	Categories []types.CategoryInfo `json:"categories"`
}

type loadToolsLoaded struct {
	Action      string   `json:"action"`
	Category    string   `json:"category"`
	ToolsLoaded []string `json:"toolsLoaded"`
	Message     string   `json:"message"`
}

func loadToolsDefinition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "load_tools",
		Description: loadToolsDescription,
		Category:    types.CategoryMeta,
		HighFreq:    true,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"category": {"type": "string", "description": "file_ops, git, search, or shell"}
			}
		}`),
	}
}

// loadToolsHandler closes over the registry so it can both report the
// category directory and mutate the session's loaded-tool set.
func loadToolsHandler(registry *Registry) Handler {
	return func(ctx context.Context, input json.RawMessage, execCtx *ExecutionContext) (any, error) {
		var params loadToolsInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &params); err != nil {
				return nil, fmt.Errorf("invalid input: %w", err)
			}
		}

		if params.Category == "" {
			return loadToolsDirectory{Categories: registry.Categories()}, nil
		}

		cat := types.ToolCategory(params.Category)
		defs := registry.ByCategory(cat)
		if len(defs) == 0 {
			return nil, fmt.Errorf("unknown category: %s", params.Category)
		}

		names := make([]string, 0, len(defs))
		for _, d := range defs {
			execCtx.Load(d.Name)
			names = append(names, d.Name)
		}

		return loadToolsLoaded{
			Action:      "load",
			Category:    params.Category,
			ToolsLoaded: names,
			Message:     fmt.Sprintf("Loaded %d tools from category %q", len(names), params.Category),
		}, nil
	}
}
