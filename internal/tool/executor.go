package tool

import (
	"context"
	"fmt"

	"github.com/driftcode/agentserver/pkg/types"
)

// Executor runs a batch of invocations against a Registry, honoring
// the session's loaded-tool gate and producing results in input
// order.
type Executor struct {
	registry *Registry
}

// NewExecutor binds an Executor to a Registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute dispatches each invocation sequentially — never in
// parallel — so tool side effects stay ordered and tool_result
// messages can be paired with their invocation by position.
func (e *Executor) Execute(ctx context.Context, invocations []types.ToolInvocation, execCtx *ExecutionContext) []types.ToolResult {
	results := make([]types.ToolResult, 0, len(invocations))
	for _, inv := range invocations {
		results = append(results, e.dispatch(ctx, inv, execCtx))
	}
	return results
}

func (e *Executor) dispatch(ctx context.Context, inv types.ToolInvocation, execCtx *ExecutionContext) types.ToolResult {
	def, handler, ok := e.registry.Get(inv.Name)
	if !ok {
		return types.ToolResult{
			ID:      inv.ID,
			Name:    inv.Name,
			IsError: true,
			Error:   fmt.Sprintf("Unknown tool: %s. Use load_tools to see available categories.", inv.Name),
		}
	}

	if def.Category != types.CategoryMeta && !execCtx.IsLoaded(inv.Name) {
		return types.ToolResult{
			ID:      inv.ID,
			Name:    inv.Name,
			IsError: true,
			Error:   fmt.Sprintf("Tool %s is not loaded. Use load_tools({category: %q}) to load it first.", inv.Name, def.Category),
		}
	}

	value, err := handler(ctx, inv.Input, execCtx)
	if err != nil {
		return types.ToolResult{ID: inv.ID, Name: inv.Name, IsError: true, Error: err.Error()}
	}
	return types.ToolResult{ID: inv.ID, Name: inv.Name, Value: value}
}
