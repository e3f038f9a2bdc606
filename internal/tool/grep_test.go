package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrepHandler_LiteralMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("func Foo() {}\nfunc Bar() {}\n"), 0644))
	execCtx := NewExecutionContext(dir, nil)

	out, err := grepHandler(context.Background(), []byte(`{"pattern":"Foo"}`), execCtx)
	require.NoError(t, err)

	result := out.(grepOutput)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 1, result.Matches[0].Line)
	assert.Equal(t, "go", result.Engine)
}

func TestGrepHandler_RegexMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("error: boom\ninfo: fine\n"), 0644))
	execCtx := NewExecutionContext(dir, nil)

	out, err := grepHandler(context.Background(), []byte(`{"pattern":"^error:.*","regex":true}`), execCtx)
	require.NoError(t, err)

	result := out.(grepOutput)
	require.Len(t, result.Matches, 1)
	assert.Contains(t, result.Matches[0].Content, "boom")
}

func TestGrepHandler_RespectsMaxResults(t *testing.T) {
	dir := t.TempDir()
	content := ""
	for i := 0; i < 10; i++ {
		content += "needle\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(content), 0644))
	execCtx := NewExecutionContext(dir, nil)

	out, err := grepHandler(context.Background(), []byte(`{"pattern":"needle","maxResults":3}`), execCtx)
	require.NoError(t, err)

	result := out.(grepOutput)
	assert.Len(t, result.Matches, 3)
	assert.True(t, result.Truncated)
}

func TestGrepHandler_IgnoresDefaultExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "lib.js"), []byte("needle"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("needle"), 0644))
	execCtx := NewExecutionContext(dir, nil)

	out, err := grepHandler(context.Background(), []byte(`{"pattern":"needle"}`), execCtx)
	require.NoError(t, err)

	result := out.(grepOutput)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "main.go", result.Matches[0].File)
}
