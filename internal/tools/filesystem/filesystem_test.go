package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool_WriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	tool := New(Config{AllowedPaths: []string{dir}})

	target := filepath.Join(dir, "note.txt")
	writeRes := tool.Execute(context.Background(), map[string]any{
		"operation": "write",
		"path":      target,
		"content":   "hello",
	})
	require.False(t, writeRes.IsError, writeRes.Text)

	readRes := tool.Execute(context.Background(), map[string]any{
		"operation": "read",
		"path":      target,
	})
	require.False(t, readRes.IsError, readRes.Text)
	assert.Equal(t, "hello", readRes.Text)
}

func TestTool_PathOutsideSandboxIsRejected(t *testing.T) {
	dir := t.TempDir()
	tool := New(Config{AllowedPaths: []string{dir}})

	outside := t.TempDir()
	result := tool.Execute(context.Background(), map[string]any{
		"operation": "read",
		"path":      filepath.Join(outside, "secret.txt"),
	})
	assert.True(t, result.IsError)
}

func TestTool_ReadOnlyRejectsWrite(t *testing.T) {
	dir := t.TempDir()
	tool := New(Config{AllowedPaths: []string{dir}, ReadOnly: true})

	result := tool.Execute(context.Background(), map[string]any{
		"operation": "write",
		"path":      filepath.Join(dir, "note.txt"),
		"content":   "hello",
	})
	assert.True(t, result.IsError)
}

func TestTool_FileExceedingMaxSizeIsRejected(t *testing.T) {
	dir := t.TempDir()
	tool := New(Config{AllowedPaths: []string{dir}, MaxFileSize: 4})

	target := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(target, []byte("this is too long"), 0o644))

	result := tool.Execute(context.Background(), map[string]any{
		"operation": "read",
		"path":      target,
	})
	assert.True(t, result.IsError)
}

func TestTool_ListReturnsEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	tool := New(Config{AllowedPaths: []string{dir}})
	result := tool.Execute(context.Background(), map[string]any{
		"operation": "list",
		"path":      dir,
	})
	require.False(t, result.IsError, result.Text)
	assert.Contains(t, result.Text, "a.txt")
	assert.Contains(t, result.Text, "sub/")
}
