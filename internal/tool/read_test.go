package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileHandler_ReturnsContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))

	execCtx := NewExecutionContext(dir, nil)
	out, err := readFileHandler(context.Background(), []byte(`{"path":"a.txt"}`), execCtx)
	require.NoError(t, err)

	result := out.(readFileOutput)
	assert.Equal(t, "a.txt", result.Path)
	assert.Equal(t, "hello", result.Content)
}

func TestReadFileHandler_MissingFilePropagatesError(t *testing.T) {
	dir := t.TempDir()
	execCtx := NewExecutionContext(dir, nil)
	_, err := readFileHandler(context.Background(), []byte(`{"path":"missing.txt"}`), execCtx)
	assert.Error(t, err)
}
