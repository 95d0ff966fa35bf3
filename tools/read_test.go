package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadTool() *ReadTool {
	return NewReadTool(permissiveGuard())
}

func TestReadTool_Execute_NumbersLines(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "file.txt")
	r.NoError(os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0644))

	result, err := newReadTool().Execute(context.Background(), map[string]any{
		"file_path": path,
	})

	r.NoError(err)
	a.False(result.IsError)
	a.Equal("1\talpha\n2\tbeta\n3\tgamma", result.Content)
}

func TestReadTool_Execute_OffsetAndLimit(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "file.txt")
	r.NoError(os.WriteFile(path, []byte("a\nb\nc\nd\ne\n"), 0644))

	result, err := newReadTool().Execute(context.Background(), map[string]any{
		"file_path": path,
		"offset":    float64(2),
		"limit":     float64(2),
	})

	r.NoError(err)
	a.Equal("2\tb\n3\tc", result.Content)
}

func TestReadTool_Execute_EmptyFile(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "empty.txt")
	r.NoError(os.WriteFile(path, nil, 0644))

	result, err := newReadTool().Execute(context.Background(), map[string]any{
		"file_path": path,
	})

	r.NoError(err)
	a.False(result.IsError)
	a.Empty(result.Content)
}

func TestReadTool_Execute_MissingFile(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	result, err := newReadTool().Execute(context.Background(), map[string]any{
		"file_path": filepath.Join(t.TempDir(), "nope.txt"),
	})

	r.NoError(err)
	a.True(result.IsError)
}
