package session

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/driftcode/agentserver/pkg/types"
)

// The cl100k_base encoding (tiktokenEnc) is built once and shared
// across calls; building it loads the vocabulary through tiktoken-go's
// BPE loader, which fetches and caches the file on first use.
var (
	tiktokenOnce sync.Once
	tiktokenEnc  *tiktoken.Tiktoken
	tiktokenErr  error
)

func getEncoding() (*tiktoken.Tiktoken, error) {
	tiktokenOnce.Do(func() {
		tiktokenEnc, tiktokenErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tiktokenEnc, tiktokenErr
}

// estimateContextTokens encodes the full message list with a stable
// tokenizer and returns (tokens, accurate, source). If the tokenizer
// is unavailable it falls back to a character-count heuristic.
func estimateContextTokens(messages []types.Message) (int, bool, string) {
	enc, err := getEncoding()
	if err != nil {
		return heuristicTokens(messages), false, "heuristic"
	}

	total := 0
	for _, m := range messages {
		total += len(enc.Encode(flattenForTokenCount(m), nil, nil))
	}
	return total, true, "tiktoken"
}

// flattenForTokenCount renders a message's content to a single string
// for tokenization, independent of the string-vs-block union it uses
// on the wire.
func flattenForTokenCount(m types.Message) string {
	if s, ok := m.StringContent(); ok {
		return s
	}
	blocks, ok := m.BlockContent()
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case types.BlockText:
			b.WriteString(blk.Text.Text)
		case types.BlockToolCall:
			b.WriteString(blk.ToolCall.Name)
			b.Write(blk.ToolCall.ArgumentsJSON)
		case types.BlockToolResult:
			b.WriteString(blk.ToolResult.Content)
		}
	}
	return b.String()
}

// heuristicTokens approximates token count as one token per four
// characters, the common rule of thumb when a real tokenizer is
// unavailable.
func heuristicTokens(messages []types.Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(flattenForTokenCount(m))
	}
	return chars / 4
}
