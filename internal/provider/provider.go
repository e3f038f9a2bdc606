package provider

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/driftcode/agentserver/internal/tool"
	"github.com/driftcode/agentserver/pkg/types"
)

const (
	// RetryInitialInterval is the first backoff interval for a failed
	// upstream request.
	RetryInitialInterval = time.Second
	// RetryMaxInterval caps the exponential backoff interval.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime bounds the total time spent retrying a
	// single sendTurn call before giving up.
	RetryMaxElapsedTime = 2 * time.Minute
	// RetryMaxRetries bounds the number of retry attempts.
	RetryMaxRetries = 3

	// DefaultModel is used when the caller does not name one.
	DefaultModel = "openai/gpt-4o"
)

// Config configures an Adapter's connection to the upstream
// OpenAI-compatible endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Adapter turns one outbound message list plus an authorized tool
// catalog into a single LLM turn, streamed as ProviderStreamEvents.
type Adapter struct {
	client       *openai.Client
	defaultModel string
}

// New builds an Adapter against cfg. BaseURL is expected to be an
// OpenRouter-compatible chat-completions base (e.g.
// "https://openrouter.ai/api/v1").
func New(cfg Config) *Adapter {
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{client: openai.NewClientWithConfig(oaCfg), defaultModel: model}
}

// SendTurnInput bundles sendTurn's parameters.
type SendTurnInput struct {
	Messages    []types.Message
	Registry    *tool.Registry
	LoadedTools map[string]bool
	Model       string
}

func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, RetryMaxRetries), ctx)
}

// SendTurn drives one LLM turn and streams internal events on the
// returned channel. The channel is closed once a terminal turn_complete
// or error event has been sent. ctx cancellation aborts the upstream
// stream and yields a terminal error event without turn_complete.
func (a *Adapter) SendTurn(ctx context.Context, in SendTurnInput) <-chan StreamEvent {
	out := make(chan StreamEvent, 16)
	go a.runTurn(ctx, in, out)
	return out
}

func (a *Adapter) runTurn(ctx context.Context, in SendTurnInput, out chan<- StreamEvent) {
	defer close(out)

	model := in.Model
	if model == "" {
		model = a.defaultModel
	}

	var tools []openai.Tool
	if in.Registry != nil {
		tools = convertTools(in.Registry.LoadedView(in.LoadedTools))
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertMessages(in.Messages),
		Tools:    tools,
		Stream:   true,
	}

	retryBackoff := newRetryBackoff(ctx)
	for {
		if ctx.Err() != nil {
			out <- StreamEvent{Type: StreamError, Err: errors.New("Aborted by user")}
			return
		}

		stream, err := a.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			if next := retryBackoff.NextBackOff(); next != backoff.Stop && ctx.Err() == nil {
				select {
				case <-time.After(next):
					continue
				case <-ctx.Done():
					out <- StreamEvent{Type: StreamError, Err: errors.New("Aborted by user")}
					return
				}
			}
			out <- StreamEvent{Type: StreamError, Err: err}
			return
		}

		done, aborted := a.consumeStream(ctx, stream, out)
		stream.Close()
		if aborted {
			return
		}
		if done {
			return
		}
		// consumeStream returned false/false only on a retryable
		// mid-stream error; fall through and retry.
		if next := retryBackoff.NextBackOff(); next == backoff.Stop {
			out <- StreamEvent{Type: StreamError, Err: errors.New("upstream stream failed after max retries")}
			return
		} else {
			select {
			case <-time.After(next):
			case <-ctx.Done():
				out <- StreamEvent{Type: StreamError, Err: errors.New("Aborted by user")}
				return
			}
		}
	}
}

// consumeStream reads one upstream stream to completion, relaying
// text_delta/tool_call_start/tool_call_delta/usage events and emitting
// the terminal tool_call_complete + turn_complete pair (or error) on
// out. It returns (done, aborted): done is true when a terminal event
// was sent (success or unrecoverable error); aborted is true
// specifically when ctx was cancelled mid-stream.
func (a *Adapter) consumeStream(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- StreamEvent) (done bool, aborted bool) {
	accs := make(map[int]*toolCallAccumulator)
	var textContent string
	var usage *types.UsageEvent

	for {
		if ctx.Err() != nil {
			out <- StreamEvent{Type: StreamError, Err: errors.New("Aborted by user")}
			return true, true
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				out <- StreamEvent{Type: StreamError, Err: errors.New("Aborted by user")}
				return true, true
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return false, false
		}

		if resp.Usage != nil {
			usage = &types.UsageEvent{
				Prompt:     resp.Usage.PromptTokens,
				Completion: resp.Usage.CompletionTokens,
				Total:      resp.Usage.TotalTokens,
			}
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			textContent += delta.Content
			out <- StreamEvent{Type: StreamTextDelta, TextDelta: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := accs[idx]
			if !ok {
				acc = &toolCallAccumulator{index: idx}
				accs[idx] = acc
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.arguments += tc.Function.Arguments
			if !acc.started {
				acc.started = true
				out <- StreamEvent{Type: StreamToolCallStart, ToolCallID: acc.id, ToolCallName: acc.name}
			}
			if tc.Function.Arguments != "" {
				out <- StreamEvent{Type: StreamToolCallDelta, ToolCallID: acc.id, ArgsDelta: tc.Function.Arguments}
			}
		}
	}

	ordered := make([]*toolCallAccumulator, 0, len(accs))
	for _, acc := range accs {
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })
	for _, acc := range ordered {
		out <- StreamEvent{Type: StreamToolCallComplete, ToolCallID: acc.id}
	}

	if usage != nil {
		out <- StreamEvent{Type: StreamUsage, Usage: usage}
	}

	result := synthesize(textContent, ordered)
	out <- StreamEvent{Type: StreamTurnComplete, Result: result}
	return true, false
}

// synthesize applies the message-synthesis rule: tool calls present →
// one assistant message with text-then-tool_call blocks, done=false;
// text only → one assistant text message, done=true; neither →
// nothing appended, done=true.
func synthesize(textContent string, calls []*toolCallAccumulator) *TurnResult {
	result := &TurnResult{TextContent: textContent}

	if len(calls) == 0 {
		if textContent == "" {
			result.Done = true
			return result
		}
		msg := types.Message{Role: types.RoleAssistant, CreatedAt: 0}
		msg.SetStringContent(textContent)
		result.MessagesToAppend = []types.Message{msg}
		result.Done = true
		return result
	}

	var blocks []types.ContentBlock
	if textContent != "" {
		blocks = append(blocks, types.NewTextBlock(textContent))
	}
	var invocations []types.ToolInvocation
	var refs []types.ToolCallRef
	for _, acc := range calls {
		args := acc.parseArguments()
		blocks = append(blocks, types.NewToolCallBlock(acc.id, acc.name, args))
		refs = append(refs, types.ToolCallRef{ID: acc.id, Name: acc.name, ArgumentsJSON: args})
		invocations = append(invocations, types.ToolInvocation{ID: acc.id, Name: acc.name, Input: args})
	}

	msg := types.Message{Role: types.RoleAssistant, ToolCalls: refs}
	msg.SetBlockContent(blocks)
	result.MessagesToAppend = []types.Message{msg}
	result.ToolInvocations = invocations
	result.Done = false
	return result
}
