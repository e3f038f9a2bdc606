package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcode/agentserver/internal/event"
	"github.com/driftcode/agentserver/internal/provider"
	"github.com/driftcode/agentserver/internal/tool"
	"github.com/driftcode/agentserver/pkg/types"
)

// fakeAdapter replays a scripted sequence of turn results, one per
// call to SendTurn, so the orchestrator's round loop can be exercised
// without a real upstream endpoint.
type fakeAdapter struct {
	turns []*provider.TurnResult
	calls int
}

func (f *fakeAdapter) SendTurn(ctx context.Context, in provider.SendTurnInput) <-chan provider.StreamEvent {
	out := make(chan provider.StreamEvent, 4)
	go func() {
		defer close(out)
		if f.calls >= len(f.turns) {
			out <- provider.StreamEvent{Type: provider.StreamError, Err: assertionError("no more scripted turns")}
			return
		}
		result := f.turns[f.calls]
		f.calls++
		if result.TextContent != "" {
			out <- provider.StreamEvent{Type: provider.StreamTextDelta, TextDelta: result.TextContent}
		}
		out <- provider.StreamEvent{Type: provider.StreamTurnComplete, Result: result}
	}()
	return out
}

type assertionError string

func (e assertionError) Error() string { return string(e) }

func drainBus(bus *event.Bus) []types.Event {
	sub := bus.Subscribe()
	var out []types.Event
	for e := range sub.Events() {
		out = append(out, e)
		if e.Type == types.EventDone {
			break
		}
	}
	return out
}

func TestRunTurn_TextOnlyCompletesInOneRound(t *testing.T) {
	adapter := &fakeAdapter{turns: []*provider.TurnResult{
		{TextContent: "hello", Done: true, MessagesToAppend: []types.Message{assistantText("hello")}},
	}}
	orch := NewOrchestrator(adapter, tool.DefaultRegistry())
	bus := event.NewBus()

	done := make(chan struct{})
	var events []types.Event
	go func() {
		events = drainBus(bus)
		close(done)
	}()

	orch.RunTurn(context.Background(), TurnInput{UserPrompt: "hi", WorkingDir: t.TempDir()}, bus)
	<-done

	var sawDone bool
	var sawText bool
	for _, e := range events {
		if e.Type == types.EventDone {
			sawDone = true
		}
		if e.Type == types.EventTextDelta {
			sawText = true
		}
	}
	assert.True(t, sawText)
	assert.True(t, sawDone)
	assert.Equal(t, 1, adapter.calls)
}

func TestRunTurn_ExecutesToolThenCompletesNextRound(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "contents")

	toolCallMsg := types.Message{Role: types.RoleAssistant}
	toolCallMsg.SetBlockContent([]types.ContentBlock{
		types.NewToolCallBlock("call_1", "read_file", json.RawMessage(`{"path":"a.txt"}`)),
	})

	adapter := &fakeAdapter{turns: []*provider.TurnResult{
		{
			Done:             false,
			MessagesToAppend: []types.Message{toolCallMsg},
			ToolInvocations:  []types.ToolInvocation{{ID: "call_1", Name: "read_file", Input: json.RawMessage(`{"path":"a.txt"}`)}},
		},
		{TextContent: "done", Done: true, MessagesToAppend: []types.Message{assistantText("done")}},
	}}

	reg := tool.DefaultRegistry()
	orch := NewOrchestrator(adapter, reg)
	bus := event.NewBus()

	var events []types.Event
	done := make(chan struct{})
	go func() {
		events = drainBus(bus)
		close(done)
	}()

	orch.RunTurn(context.Background(), TurnInput{
		UserPrompt:  "read a.txt",
		WorkingDir:  dir,
		LoadedTools: map[string]bool{"read_file": true},
	}, bus)
	<-done

	assert.Equal(t, 2, adapter.calls)

	var sawPending, sawCompleted bool
	for _, e := range events {
		if e.Type == types.EventToolCall && e.ToolCall.Status == types.ToolCallPending {
			sawPending = true
		}
		if e.Type == types.EventToolResult && e.ToolCall.Status == types.ToolCallCompleted {
			sawCompleted = true
		}
	}
	assert.True(t, sawPending)
	assert.True(t, sawCompleted)
}

func TestRunTurn_AbortedBeforeStartingWhenContextAlreadyCancelled(t *testing.T) {
	adapter := &fakeAdapter{}
	orch := NewOrchestrator(adapter, tool.DefaultRegistry())
	bus := event.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []types.Event
	done := make(chan struct{})
	go func() {
		events = drainBus(bus)
		close(done)
	}()

	orch.RunTurn(ctx, TurnInput{UserPrompt: "hi", WorkingDir: t.TempDir()}, bus)
	<-done

	require.Len(t, events, 2)
	assert.Equal(t, types.EventError, events[0].Type)
	assert.Equal(t, "Aborted before starting", events[0].ErrMessage)
	assert.Equal(t, types.EventDone, events[1].Type)
	assert.Equal(t, 0, adapter.calls)
}

func TestRunTurn_RoundCapStopsInfiniteToolLoop(t *testing.T) {
	toolCallMsg := func() types.Message {
		m := types.Message{Role: types.RoleAssistant}
		m.SetBlockContent([]types.ContentBlock{
			types.NewToolCallBlock("call_x", "read_file", json.RawMessage(`{"path":"a.txt"}`)),
		})
		return m
	}

	var turns []*provider.TurnResult
	for i := 0; i < DefaultMaxRounds+1; i++ {
		turns = append(turns, &provider.TurnResult{
			Done:             false,
			MessagesToAppend: []types.Message{toolCallMsg()},
			ToolInvocations:  []types.ToolInvocation{{ID: "call_x", Name: "read_file", Input: json.RawMessage(`{"path":"a.txt"}`)}},
		})
	}
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "x")

	adapter := &fakeAdapter{turns: turns}
	orch := NewOrchestrator(adapter, tool.DefaultRegistry())
	bus := event.NewBus()

	var events []types.Event
	done := make(chan struct{})
	go func() {
		events = drainBus(bus)
		close(done)
	}()

	orch.RunTurn(context.Background(), TurnInput{
		UserPrompt:  "loop",
		WorkingDir:  dir,
		LoadedTools: map[string]bool{"read_file": true},
	}, bus)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for round cap to trigger")
	}

	last := events[len(events)-2]
	assert.Equal(t, types.EventError, last.Type)
	assert.Contains(t, last.ErrMessage, "tool call rounds to prevent infinite loops")
}

func assistantText(s string) types.Message {
	m := types.Message{Role: types.RoleAssistant}
	m.SetStringContent(s)
	return m
}

func writeTemp(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}
