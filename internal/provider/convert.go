package provider

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/driftcode/agentserver/pkg/types"
)

// convertTools maps the registry's authorized view (registry.LoadedView)
// into the wire shape the chat-completions endpoint expects for function
// calling.
func convertTools(defs []types.ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		var params any
		if len(d.InputSchema) > 0 {
			_ = json.Unmarshal(d.InputSchema, &params)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// convertMessages maps the internal string-or-block Message union into
// the role/content/tool_calls shape go-openai's ChatCompletionMessage
// expects, splitting each tool_result block into its own "tool" role
// message as required by the OpenAI wire protocol.
func convertMessages(messages []types.Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	for _, m := range messages {
		if s, ok := m.StringContent(); ok {
			out = append(out, openai.ChatCompletionMessage{
				Role:    string(m.Role),
				Content: s,
			})
			continue
		}

		blocks, ok := m.BlockContent()
		if !ok {
			continue
		}

		var text string
		var toolCalls []openai.ToolCall
		for _, b := range blocks {
			switch b.Kind {
			case types.BlockText:
				text += b.Text.Text
			case types.BlockToolCall:
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   b.ToolCall.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.ToolCall.Name,
						Arguments: string(b.ToolCall.ArgumentsJSON),
					},
				})
			case types.BlockToolResult:
				out = append(out, openai.ChatCompletionMessage{
					Role:       string(types.RoleTool),
					Content:    b.ToolResult.Content,
					ToolCallID: b.ToolResult.ToolUseID,
				})
			}
		}

		if text != "" || len(toolCalls) > 0 {
			out = append(out, openai.ChatCompletionMessage{
				Role:      string(m.Role),
				Content:   text,
				ToolCalls: toolCalls,
			})
		}
	}
	return out
}
