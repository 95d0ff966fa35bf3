package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/guard"
)

func permissiveGuard() *guard.PathGuard {
	return guard.NewPathGuard(&guard.Config{AllowOverwrite: true})
}

func decodeFileResult(t *testing.T, content string) FileResult {
	t.Helper()
	var fr FileResult
	require.NoError(t, json.Unmarshal([]byte(content), &fr))
	return fr
}

func TestWriteTool_Name(t *testing.T) {
	a := assert.New(t)
	tool := NewWriteTool(permissiveGuard())
	a.Equal("Write", tool.Name())
}

func TestWriteTool_Execute_BasicWrite(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given - temp directory
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	content := "hello world\n"

	tool := NewWriteTool(permissiveGuard())

	// when - write file
	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   content,
	})

	// then - file created and checksum matches the bytes on disk
	r.NoError(err)
	a.False(result.IsError)

	fr := decodeFileResult(t, result.Content)
	a.Equal(StatusSuccess, fr.Status)
	r.NotNil(fr.BytesWritten)
	a.Equal(len(content), *fr.BytesWritten)

	data, err := os.ReadFile(path)
	r.NoError(err)
	a.Equal(content, string(data))
	a.Equal(Checksum(data), fr.Checksum)
}

func TestWriteTool_Execute_EmptyContentReportsZeroBytes(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")

	tool := NewWriteTool(permissiveGuard())

	// when - write an empty file
	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "",
	})

	// then - success still carries an explicit zero byte count
	r.NoError(err)
	a.False(result.IsError)
	a.Contains(result.Content, `"bytesWritten":0`)

	fr := decodeFileResult(t, result.Content)
	a.Equal(StatusSuccess, fr.Status)
	r.NotNil(fr.BytesWritten)
	a.Equal(0, *fr.BytesWritten)
}

func TestWriteTool_Execute_RefusesOverwriteWithoutFlag(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	r.NoError(os.WriteFile(path, []byte("old"), 0644))

	tool := NewWriteTool(permissiveGuard())

	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "new",
	})

	// then - validation fails and the file is untouched
	r.NoError(err)
	a.True(result.IsError)
	fr := decodeFileResult(t, result.Content)
	a.Equal(StatusValidationFailed, fr.Status)

	data, _ := os.ReadFile(path)
	a.Equal("old", string(data))
}

func TestWriteTool_Execute_HashMismatchLeavesFileUntouched(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	r.NoError(os.WriteFile(path, []byte("original"), 0644))

	tool := NewWriteTool(permissiveGuard())

	// when - writing with a stale expected hash
	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path":     path,
		"content":       "replacement",
		"overwrite":     true,
		"expected_hash": Checksum([]byte("something else")),
	})

	// then - hash_mismatch, nothing written
	r.NoError(err)
	a.True(result.IsError)
	fr := decodeFileResult(t, result.Content)
	a.Equal(StatusHashMismatch, fr.Status)

	data, _ := os.ReadFile(path)
	a.Equal("original", string(data))
}

func TestWriteTool_Execute_HashMatchSwaps(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	r.NoError(os.WriteFile(path, []byte("original"), 0644))

	tool := NewWriteTool(permissiveGuard())

	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path":     path,
		"content":       "replacement",
		"overwrite":     true,
		"expected_hash": Checksum([]byte("original")),
	})

	r.NoError(err)
	a.False(result.IsError)

	data, _ := os.ReadFile(path)
	a.Equal("replacement", string(data))
}

func TestWriteTool_Execute_DryRunWritesNothing(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "new.txt")

	tool := NewWriteTool(permissiveGuard())

	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "would be written",
		"dry_run":   true,
	})

	// then - success with preview, but no file on disk
	r.NoError(err)
	a.False(result.IsError)
	fr := decodeFileResult(t, result.Content)
	a.Equal(StatusSuccess, fr.Status)
	r.NotNil(fr.BytesWritten)
	a.Equal(0, *fr.BytesWritten)
	a.Equal("would be written", fr.Preview)
	a.NotEmpty(fr.Warnings)

	_, err = os.Stat(path)
	a.True(os.IsNotExist(err))
}

func TestWriteTool_Execute_CreatesParentDirs(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "file.txt")

	tool := NewWriteTool(permissiveGuard())

	result, err := tool.Execute(context.Background(), map[string]any{
		"file_path": path,
		"content":   "nested content",
	})

	r.NoError(err)
	a.False(result.IsError)

	data, err := os.ReadFile(path)
	r.NoError(err)
	a.Equal("nested content", string(data))
}

func TestWriteFileAtomic_RoundTrip(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "atomic.txt")
	payload := []byte("atomic payload")

	checksum, err := WriteFileAtomic(path, payload, 0644)
	r.NoError(err)

	onDisk, err := FileChecksum(path)
	r.NoError(err)
	a.Equal(checksum, onDisk)
	a.Equal(Checksum(payload), checksum)

	// no temp file left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	r.NoError(err)
	a.Len(entries, 1)
}
