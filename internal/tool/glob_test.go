package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesHandler_MatchesDoubleStarPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "sub", "a.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("x"), 0644))

	execCtx := NewExecutionContext(dir, nil)
	out, err := findFilesHandler(context.Background(), []byte(`{"pattern":"**/*.go"}`), execCtx)
	require.NoError(t, err)

	result := out.(findFilesOutput)
	assert.Equal(t, 2, result.FileCount)
}

func TestFindFilesHandler_RespectsMaxResults(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(rune('a'+i))+".go"), []byte("x"), 0644))
	}
	execCtx := NewExecutionContext(dir, nil)

	out, err := findFilesHandler(context.Background(), []byte(`{"pattern":"*.go","maxResults":2}`), execCtx)
	require.NoError(t, err)

	result := out.(findFilesOutput)
	assert.Equal(t, 2, result.FileCount)
	assert.True(t, result.Truncated)
}
