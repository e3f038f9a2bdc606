package types

// EventType is the closed set of values an Event on the event bus can take.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventToolCall  EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventContext   EventType = "context"
	EventUsage     EventType = "usage"
	EventError     EventType = "error"
	EventDone      EventType = "done"
)

// ToolCallStatus is the lifecycle of a tool_call/tool_result event pair.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallError     ToolCallStatus = "error"
)

// Event is a value delivered by the per-session event bus.
type Event struct {
	Type       EventType       `json:"type"`
	TextDelta  string          `json:"text,omitempty"`
	ToolCall   *ToolCallEvent  `json:"toolCall,omitempty"`
	Context    *ContextEvent   `json:"context,omitempty"`
	Usage      *UsageEvent     `json:"usage,omitempty"`
	ErrMessage string          `json:"message,omitempty"`
}

// ToolCallEvent is the payload of a tool_call/tool_result event.
type ToolCallEvent struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status ToolCallStatus `json:"status"`
	Input  any            `json:"input,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ContextEvent reports the locally-computed context window size.
type ContextEvent struct {
	ContextTokens int    `json:"contextTokens"`
	Accurate      bool   `json:"accurate"`
	Source        string `json:"source"`
}

// UsageEvent reports provider-side token accounting for one round.
type UsageEvent struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// TextDelta builds a text_delta event.
func TextDelta(text string) Event { return Event{Type: EventTextDelta, TextDelta: text} }

// Done builds the terminal done event.
func Done() Event { return Event{Type: EventDone} }

// Err builds an error event.
func Err(message string) Event { return Event{Type: EventError, ErrMessage: message} }

// ContextUsage builds a context event.
func ContextUsage(tokens int, accurate bool, source string) Event {
	return Event{Type: EventContext, Context: &ContextEvent{ContextTokens: tokens, Accurate: accurate, Source: source}}
}

// Usage builds a usage event.
func Usage(prompt, completion, total int) Event {
	return Event{Type: EventUsage, Usage: &UsageEvent{Prompt: prompt, Completion: completion, Total: total}}
}

// PendingToolCall builds a pending tool_call event.
func PendingToolCall(id, name string) Event {
	return Event{Type: EventToolCall, ToolCall: &ToolCallEvent{ID: id, Name: name, Status: ToolCallPending}}
}

// CompletedToolCall builds a terminal tool_result event for a successful invocation.
func CompletedToolCall(id, name string, input, result any) Event {
	return Event{Type: EventToolResult, ToolCall: &ToolCallEvent{
		ID: id, Name: name, Status: ToolCallCompleted, Input: input, Result: result,
	}}
}

// FailedToolCall builds a terminal tool_result event for a failed invocation.
func FailedToolCall(id, name string, input any, errMsg string) Event {
	return Event{Type: EventToolResult, ToolCall: &ToolCallEvent{
		ID: id, Name: name, Status: ToolCallError, Input: input, Error: errMsg,
	}}
}
