// Package session drives one agent conversation turn to completion and
// owns the per-session lifecycle: creation, cache, cancellation, and
// the event bus that streams a turn's progress to subscribers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftcode/agentserver/internal/event"
	"github.com/driftcode/agentserver/internal/provider"
	"github.com/driftcode/agentserver/internal/tool"
	"github.com/driftcode/agentserver/pkg/types"
)

// DefaultMaxRounds caps the number of LLM↔tool rounds a turn may take
// before the orchestrator gives up to prevent an infinite loop. It is
// overridable per call (and, at the server layer, via
// AGENTSERVER_MAX_ROUNDS).
const DefaultMaxRounds = 20

// DefaultSystemPrompt is used when a caller does not supply one and
// the message history carries no system message of its own.
const DefaultSystemPrompt = "You are a careful coding agent. Use the available tools to inspect and modify the working directory before answering. Call load_tools to discover tool categories beyond the meta tools."

// TurnInput bundles runTurn's parameters.
type TurnInput struct {
	UserPrompt   string
	WorkingDir   string
	History      []types.Message
	SystemPrompt string
	Model        string
	LoadedTools  map[string]bool
	MaxRounds    int
	MaxWallClock time.Duration

	// PersistMessage is invoked once per message the orchestrator
	// appends to the conversation (in order), so the caller can
	// durably store it alongside the in-memory list this turn builds.
	PersistMessage func(types.Message)
}

// ProviderAdapter is the subset of provider.Adapter the orchestrator
// depends on, so tests can substitute a fake stream without a real
// upstream endpoint.
type ProviderAdapter interface {
	SendTurn(ctx context.Context, in provider.SendTurnInput) <-chan provider.StreamEvent
}

// Orchestrator drives a single turn: repeated LLM calls interleaved
// with tool execution, until the model produces a plain text answer,
// the round budget is exhausted, or the turn is cancelled.
type Orchestrator struct {
	adapter  ProviderAdapter
	registry *tool.Registry
	executor *tool.Executor
}

// NewOrchestrator builds an Orchestrator bound to one provider adapter
// and tool registry; both are shared across sessions.
func NewOrchestrator(adapter ProviderAdapter, registry *tool.Registry) *Orchestrator {
	return &Orchestrator{
		adapter:  adapter,
		registry: registry,
		executor: tool.NewExecutor(registry),
	}
}

// RunTurn drives one conversation turn, pushing every event onto bus
// in order, and returns once a terminal "done" has been pushed. bus is
// not closed by RunTurn — the caller owns the bus and closes it after
// the turn (Manager.StartTurn does this; each turn gets its own bus).
func (o *Orchestrator) RunTurn(ctx context.Context, in TurnInput, bus *event.Bus) {
	if ctx.Err() != nil {
		bus.Push(types.Err("Aborted before starting"))
		bus.Push(types.Done())
		return
	}

	maxRounds := in.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	systemPrompt := in.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	messages := buildInitialMessages(in.History, systemPrompt, in.UserPrompt)
	o.persist(in, messages[len(messages)-1])

	loaded := in.LoadedTools
	if loaded == nil {
		loaded = make(map[string]bool)
	}
	execCtx := tool.NewExecutionContext(in.WorkingDir, loaded)

	var deadline <-chan time.Time
	if in.MaxWallClock > 0 {
		timer := time.NewTimer(in.MaxWallClock)
		defer timer.Stop()
		deadline = timer.C
	}

	for round := 1; round <= maxRounds; round++ {
		if ctx.Err() != nil {
			bus.Push(types.Err("Aborted by user"))
			bus.Push(types.Done())
			return
		}
		select {
		case <-deadline:
			bus.Push(types.Err("turn timed out"))
			bus.Push(types.Done())
			return
		default:
		}

		tokens, accurate, source := estimateContextTokens(messages)
		bus.Push(types.ContextUsage(tokens, accurate, source))

		result, errEvent := o.sendOneTurn(ctx, in.Model, messages, loaded, bus)
		if errEvent != nil {
			bus.Push(*errEvent)
			bus.Push(types.Done())
			return
		}

		for _, m := range result.MessagesToAppend {
			messages = append(messages, m)
			o.persist(in, m)
		}

		if len(result.ToolInvocations) == 0 {
			bus.Push(types.Done())
			return
		}

		select {
		case <-deadline:
			bus.Push(types.Err("turn timed out"))
			bus.Push(types.Done())
			return
		default:
		}

		results := o.executor.Execute(ctx, result.ToolInvocations, execCtx)

		var resultBlocks []types.ContentBlock
		for i, r := range results {
			input := decodeInput(result.ToolInvocations[i].Input)
			if r.IsError {
				bus.Push(types.FailedToolCall(r.ID, r.Name, input, r.Error))
			} else {
				bus.Push(types.CompletedToolCall(r.ID, r.Name, input, r.Value))
			}
			content := tool.FormatResult(r.Value, toolError(r))
			resultBlocks = append(resultBlocks, types.NewToolResultBlock(r.ID, content, r.IsError))
		}

		toolResultMsg := types.Message{Role: types.RoleUser}
		toolResultMsg.SetBlockContent(resultBlocks)
		messages = append(messages, toolResultMsg)
		o.persist(in, toolResultMsg)
	}

	bus.Push(types.Err(fmt.Sprintf("Agent stopped after %d tool call rounds to prevent infinite loops", maxRounds)))
	bus.Push(types.Done())
}

func (o *Orchestrator) persist(in TurnInput, m types.Message) {
	if in.PersistMessage != nil {
		in.PersistMessage(m)
	}
}

// toolError reconstructs an error value from a ToolResult so
// tool.FormatResult can apply its single "Error: <message>" rendering
// rule uniformly, whether the error came from dispatch or the handler.
func toolError(r types.ToolResult) error {
	if !r.IsError {
		return nil
	}
	return fmt.Errorf("%s", r.Error)
}

// decodeInput unmarshals a tool invocation's raw JSON arguments into a
// plain value for the event payload; malformed or empty input yields
// nil rather than failing the turn.
func decodeInput(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// sendOneTurn drives one call to the provider adapter, relaying
// upstream events onto bus per the orchestrator's event-translation
// rules, and returns the synthesized result or a terminal error event.
func (o *Orchestrator) sendOneTurn(ctx context.Context, model string, messages []types.Message, loaded map[string]bool, bus *event.Bus) (*provider.TurnResult, *types.Event) {
	ch := o.adapter.SendTurn(ctx, provider.SendTurnInput{
		Messages:    messages,
		Registry:    o.registry,
		LoadedTools: loaded,
		Model:       model,
	})

	for ev := range ch {
		switch ev.Type {
		case provider.StreamTextDelta:
			bus.Push(types.TextDelta(ev.TextDelta))
		case provider.StreamToolCallStart:
			bus.Push(types.PendingToolCall(ev.ToolCallID, ev.ToolCallName))
		case provider.StreamToolCallDelta:
			// Argument fragments are not surfaced individually; the
			// orchestrator emits the fully parsed input once the tool
			// actually runs.
		case provider.StreamUsage:
			bus.Push(types.Usage(ev.Usage.Prompt, ev.Usage.Completion, ev.Usage.Total))
		case provider.StreamError:
			e := types.Err(ev.Err.Error())
			return nil, &e
		case provider.StreamTurnComplete:
			return ev.Result, nil
		}
	}

	e := types.Err("provider stream closed without a terminal event")
	return nil, &e
}

// buildInitialMessages constructs the message list for round one: a
// leading system message if history doesn't already carry one, the
// prior history, then the new user prompt.
func buildInitialMessages(history []types.Message, systemPrompt, userPrompt string) []types.Message {
	var out []types.Message
	hasSystem := false
	for _, m := range history {
		if m.Role == types.RoleSystem {
			hasSystem = true
			break
		}
	}
	if !hasSystem {
		sys := types.Message{Role: types.RoleSystem}
		sys.SetStringContent(systemPrompt)
		out = append(out, sys)
	}
	out = append(out, history...)

	user := types.Message{Role: types.RoleUser}
	user.SetStringContent(userPrompt)
	out = append(out, user)
	return out
}
