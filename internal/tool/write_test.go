package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileHandler_CreatesParentDirsAndWrites(t *testing.T) {
	dir := t.TempDir()
	execCtx := NewExecutionContext(dir, nil)

	out, err := writeFileHandler(context.Background(), []byte(`{"path":"nested/dir/file.txt","content":"hi"}`), execCtx)
	require.NoError(t, err)

	result := out.(writeFileOutput)
	assert.Equal(t, "ok", result.Status)

	data, err := os.ReadFile(filepath.Join(dir, "nested/dir/file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestWriteFileHandler_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	execCtx := NewExecutionContext(dir, nil)
	_, err := writeFileHandler(context.Background(), []byte(`{"path":"f.txt","content":"new"}`), execCtx)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
