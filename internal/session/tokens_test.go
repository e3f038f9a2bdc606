package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftcode/agentserver/pkg/types"
)

func TestEstimateContextTokens_AccurateWithTiktoken(t *testing.T) {
	msg := types.Message{Role: types.RoleUser}
	msg.SetStringContent("hello there, this is a test message")

	tokens, accurate, source := estimateContextTokens([]types.Message{msg})

	assert.Greater(t, tokens, 0)
	assert.True(t, accurate)
	assert.Equal(t, "tiktoken", source)
}

func TestEstimateContextTokens_GrowsWithMoreContent(t *testing.T) {
	short := types.Message{Role: types.RoleUser}
	short.SetStringContent("hi")
	long := types.Message{Role: types.RoleUser}
	long.SetStringContent("this is a much longer message that should produce more tokens than a short greeting")

	shortTokens, _, _ := estimateContextTokens([]types.Message{short})
	longTokens, _, _ := estimateContextTokens([]types.Message{long})

	assert.Less(t, shortTokens, longTokens)
}

func TestHeuristicTokens_ApproximatesByCharacterCount(t *testing.T) {
	msg := types.Message{Role: types.RoleUser}
	msg.SetStringContent("0123456789")

	n := heuristicTokens([]types.Message{msg})

	assert.Equal(t, 2, n)
}
