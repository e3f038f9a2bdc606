// Package provider normalizes a streaming LLM protocol into an
// internal event stream.
//
// sendTurn takes one outbound message list plus the currently
// authorized tool catalog and drives a single request against an
// OpenAI-compatible chat-completions endpoint (OpenRouter by
// default). The wire protocol delivers tool calls as indexed
// fragments — `{index, id?, function:{name?, arguments?}}` — which
// this package reassembles by index before handing complete tool
// calls back to the caller.
//
// This mirrors the teacher's streaming-adapter shape
// (internal/session/loop.go's per-round LLM call) but targets
// github.com/sashabaranov/go-openai directly instead of the Eino
// chat-model abstraction, since the spec's tool-call delta shape is
// OpenAI's native streaming function-call format.
package provider
