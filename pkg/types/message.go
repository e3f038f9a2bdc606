package types

import (
	"encoding/json"
	"fmt"
)

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRef is an ordered (toolCallId, toolName, argumentsJSON) triple
// recorded on an assistant message that produced tool calls.
type ToolCallRef struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ArgumentsJSON json.RawMessage `json:"argumentsJSON"`
}

// Message is one ordered entry in a Session's conversation.
//
// Content is either a plain string or an ordered []ContentBlock; callers
// use StringContent/BlockContent to read it and SetStringContent/
// SetBlockContent to write it. The zero value has no content.
type Message struct {
	Seq         int             `json:"seq"`
	SessionID   string          `json:"sessionID"`
	Role        Role            `json:"role"`
	contentStr  *string         `json:"-"`
	contentBlk  []ContentBlock  `json:"-"`
	ToolCalls   []ToolCallRef   `json:"toolCalls,omitempty"`
	ToolCallID  string          `json:"toolCallID,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
}

// StringContent returns the message content as a string and true if the
// message carries plain-string content.
func (m *Message) StringContent() (string, bool) {
	if m.contentStr != nil {
		return *m.contentStr, true
	}
	return "", false
}

// BlockContent returns the message content as an ordered block sequence
// and true if the message carries block content.
func (m *Message) BlockContent() ([]ContentBlock, bool) {
	if m.contentBlk != nil {
		return m.contentBlk, true
	}
	return nil, false
}

// SetStringContent sets the message's content to a plain string.
func (m *Message) SetStringContent(s string) {
	m.contentStr = &s
	m.contentBlk = nil
}

// SetBlockContent sets the message's content to an ordered block sequence.
func (m *Message) SetBlockContent(blocks []ContentBlock) {
	m.contentBlk = blocks
	m.contentStr = nil
}

// wireMessage is the JSON-on-the-wire shape for Message: content is a
// single field holding either a JSON string or a JSON array of blocks.
type wireMessage struct {
	Seq        int             `json:"seq"`
	SessionID  string          `json:"sessionID"`
	Role       Role            `json:"role"`
	Content    json.RawMessage `json:"content"`
	ToolCalls  []ToolCallRef   `json:"toolCalls,omitempty"`
	ToolCallID string          `json:"toolCallID,omitempty"`
	CreatedAt  int64           `json:"createdAt"`
}

// MarshalJSON implements json.Marshaler, serializing the string-or-blocks
// union into a single "content" field.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		Seq:        m.Seq,
		SessionID:  m.SessionID,
		Role:       m.Role,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		CreatedAt:  m.CreatedAt,
	}
	var err error
	switch {
	case m.contentStr != nil:
		w.Content, err = json.Marshal(*m.contentStr)
	case m.contentBlk != nil:
		w.Content, err = json.Marshal(m.contentBlk)
	default:
		w.Content = json.RawMessage("null")
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler, recovering the string-or-
// blocks union from the wire "content" field.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Seq = w.Seq
	m.SessionID = w.SessionID
	m.Role = w.Role
	m.ToolCalls = w.ToolCalls
	m.ToolCallID = w.ToolCallID
	m.CreatedAt = w.CreatedAt
	m.contentStr = nil
	m.contentBlk = nil

	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}

	var asString string
	if err := json.Unmarshal(w.Content, &asString); err == nil {
		m.contentStr = &asString
		return nil
	}

	var asBlocks []json.RawMessage
	if err := json.Unmarshal(w.Content, &asBlocks); err != nil {
		return fmt.Errorf("message content is neither a string nor a block array: %w", err)
	}
	blocks := make([]ContentBlock, 0, len(asBlocks))
	for _, raw := range asBlocks {
		b, err := UnmarshalContentBlock(raw)
		if err != nil {
			return err
		}
		blocks = append(blocks, b)
	}
	m.contentBlk = blocks
	return nil
}
