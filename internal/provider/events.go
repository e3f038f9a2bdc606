package provider

import (
	"encoding/json"

	"github.com/driftcode/agentserver/pkg/types"
)

// StreamEventType is the closed set of values a ProviderStreamEvent can take.
type StreamEventType string

const (
	StreamTextDelta        StreamEventType = "text_delta"
	StreamToolCallStart    StreamEventType = "tool_call_start"
	StreamToolCallDelta    StreamEventType = "tool_call_delta"
	StreamToolCallComplete StreamEventType = "tool_call_complete"
	StreamUsage            StreamEventType = "usage"
	StreamTurnComplete     StreamEventType = "turn_complete"
	StreamError            StreamEventType = "error"
)

// TurnResult is the payload of a terminal turn_complete event.
type TurnResult struct {
	MessagesToAppend []types.Message
	ToolInvocations  []types.ToolInvocation
	Done             bool
	TextContent      string
}

// StreamEvent is one value emitted by Adapter.SendTurn.
type StreamEvent struct {
	Type StreamEventType

	TextDelta string

	ToolCallID   string
	ToolCallName string
	ArgsDelta    string

	Usage *types.UsageEvent

	Result *TurnResult

	Err error
}

// toolCallAccumulator reassembles indexed tool-call fragments delivered by
// the upstream streaming protocol: id and name are set on first appearance,
// arguments are string-concatenated across fragments.
type toolCallAccumulator struct {
	index     int
	id        string
	name      string
	arguments string
	started   bool
}

// parseArguments JSON-decodes the accumulated arguments string, falling
// back to an empty object on parse failure per the adapter's argument
// parsing contract.
func (t *toolCallAccumulator) parseArguments() json.RawMessage {
	trimmed := t.arguments
	if trimmed == "" {
		return json.RawMessage("{}")
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return json.RawMessage("{}")
	}
	return json.RawMessage(trimmed)
}
