package types

import (
	"encoding/json"
	"fmt"
)

// BlockKind tags the variant of a ContentBlock.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolCall   BlockKind = "tool_call"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is a typed element of a message's content list: plain
// text, an assistant tool call, or a tool result. Exactly one of
// TextBlock/ToolCallBlock/ToolResultBlock is non-nil, matching Kind.
type ContentBlock struct {
	Kind       BlockKind
	Text       *TextBlock
	ToolCall   *ToolCallBlock
	ToolResult *ToolResultBlock
}

// TextBlock is a plain-text content block.
type TextBlock struct {
	Text string `json:"text"`
}

// ToolCallBlock records one assistant tool invocation.
type ToolCallBlock struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ArgumentsJSON json.RawMessage `json:"argumentsJSON"`
}

// ToolResultBlock records the outcome of one tool invocation.
type ToolResultBlock struct {
	ToolUseID string `json:"toolUseId"`
	Content   string `json:"content"`
	IsError   bool   `json:"isError"`
}

// NewTextBlock constructs a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: &TextBlock{Text: text}}
}

// NewToolCallBlock constructs a tool-call content block.
func NewToolCallBlock(id, name string, args json.RawMessage) ContentBlock {
	return ContentBlock{Kind: BlockToolCall, ToolCall: &ToolCallBlock{ID: id, Name: name, ArgumentsJSON: args}}
}

// NewToolResultBlock constructs a tool-result content block.
func NewToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResult: &ToolResultBlock{ToolUseID: toolUseID, Content: content, IsError: isError}}
}

// wireBlock is the on-the-wire shape of a ContentBlock: a "type"
// discriminant plus the fields of whichever variant applies.
type wireBlock struct {
	Type          BlockKind       `json:"type"`
	Text          string          `json:"text,omitempty"`
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	ArgumentsJSON json.RawMessage `json:"argumentsJSON,omitempty"`
	ToolUseID     string          `json:"toolUseId,omitempty"`
	Content       string          `json:"content,omitempty"`
	IsError       bool            `json:"isError,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	w := wireBlock{Type: b.Kind}
	switch b.Kind {
	case BlockText:
		if b.Text == nil {
			return nil, fmt.Errorf("content block tagged %q missing text payload", b.Kind)
		}
		w.Text = b.Text.Text
	case BlockToolCall:
		if b.ToolCall == nil {
			return nil, fmt.Errorf("content block tagged %q missing tool_call payload", b.Kind)
		}
		w.ID = b.ToolCall.ID
		w.Name = b.ToolCall.Name
		w.ArgumentsJSON = b.ToolCall.ArgumentsJSON
	case BlockToolResult:
		if b.ToolResult == nil {
			return nil, fmt.Errorf("content block tagged %q missing tool_result payload", b.Kind)
		}
		w.ToolUseID = b.ToolResult.ToolUseID
		w.Content = b.ToolResult.Content
		w.IsError = b.ToolResult.IsError
	default:
		return nil, fmt.Errorf("unknown content block kind %q", b.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	block, err := UnmarshalContentBlock(data)
	if err != nil {
		return err
	}
	*b = block
	return nil
}

// UnmarshalContentBlock parses a single wire-format content block.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return ContentBlock{}, err
	}
	switch w.Type {
	case BlockText:
		return ContentBlock{Kind: BlockText, Text: &TextBlock{Text: w.Text}}, nil
	case BlockToolCall:
		return ContentBlock{Kind: BlockToolCall, ToolCall: &ToolCallBlock{
			ID: w.ID, Name: w.Name, ArgumentsJSON: w.ArgumentsJSON,
		}}, nil
	case BlockToolResult:
		return ContentBlock{Kind: BlockToolResult, ToolResult: &ToolResultBlock{
			ToolUseID: w.ToolUseID, Content: w.Content, IsError: w.IsError,
		}}, nil
	default:
		return ContentBlock{}, fmt.Errorf("unknown content block type %q", w.Type)
	}
}
