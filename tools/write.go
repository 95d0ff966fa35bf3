package tools

import (
	"context"
	"fmt"
	"os"

	"toolgate/guard"
)

// WriteTool replaces a file's content in one atomic step. An optional
// expected_hash turns the write into a compare-and-swap: if the file on
// disk no longer matches, nothing is written.
type WriteTool struct {
	paths *guard.PathGuard
}

// NewWriteTool creates a new Write tool
func NewWriteTool(g *guard.PathGuard) *WriteTool {
	return &WriteTool{paths: g}
}

// Name returns "Write"
func (w *WriteTool) Name() string {
	return "Write"
}

// Execute writes content to file_path atomically
func (w *WriteTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return FileResult{Status: StatusValidationFailed, Error: "file_path is required"}.render(""), nil
	}

	content, ok := args["content"].(string)
	if !ok {
		return FileResult{Status: StatusValidationFailed, Error: "content is required"}.render(filePath), nil
	}

	overwrite := false
	if v, ok := args["overwrite"].(bool); ok {
		overwrite = v
	}
	dryRun := false
	if v, ok := args["dry_run"].(bool); ok {
		dryRun = v
	}
	expectedHash, _ := args["expected_hash"].(string)

	clean, err := w.paths.CheckWrite(filePath, overwrite)
	if err != nil {
		return FileResult{Status: StatusValidationFailed, Error: err.Error()}.render(filePath), nil
	}

	// optimistic lock: the caller wrote expected_hash after reading the
	// file; any concurrent change fails the swap without touching disk
	if expectedHash != "" {
		current, err := FileChecksum(clean)
		if os.IsNotExist(err) {
			current = ""
			err = nil
		}
		if err != nil {
			return FileResult{Status: StatusError, Error: err.Error()}.render(clean), nil
		}
		if current != expectedHash {
			return FileResult{
				Status: StatusHashMismatch,
				Error:  fmt.Sprintf("file changed since read: expected hash %s", expectedHash),
			}.render(clean), nil
		}
	}

	data := []byte(content)

	if dryRun {
		return FileResult{
			Status:       StatusSuccess,
			BytesWritten: byteCount(0),
			Checksum:     Checksum(data),
			Preview:      previewOf(content),
			Warnings:     []string{"dry run: no bytes written"},
		}.render(clean), nil
	}

	checksum, err := WriteFileAtomic(clean, data, 0644)
	if err != nil {
		return FileResult{Status: StatusError, Error: err.Error()}.render(clean), nil
	}

	return FileResult{
		Status:       StatusSuccess,
		BytesWritten: byteCount(len(data)),
		Checksum:     checksum,
	}.render(clean), nil
}

const previewMaxBytes = 1024

// previewOf returns the head of content for dry-run results.
func previewOf(content string) string {
	if len(content) <= previewMaxBytes {
		return content
	}
	return content[:previewMaxBytes]
}
