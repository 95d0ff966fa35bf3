package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"toolgate/guard"
)

// EditTool applies line-range edits to a file. Edit keys are 1-indexed
// "start" or "start-end" ranges; the whole request validates against
// the file before any byte changes, and the rewrite is atomic.
type EditTool struct {
	paths *guard.PathGuard
	edits *guard.EditGuard
}

// NewEditTool creates a new Edit tool
func NewEditTool(pg *guard.PathGuard, eg *guard.EditGuard) *EditTool {
	return &EditTool{paths: pg, edits: eg}
}

// Name returns "Edit"
func (e *EditTool) Name() string {
	return "Edit"
}

// Execute applies the edit map to file_path
func (e *EditTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return FileResult{Status: StatusValidationFailed, Error: "file_path is required"}.render(""), nil
	}

	rawEdits, ok := args["edits"].(map[string]any)
	if !ok || len(rawEdits) == 0 {
		return FileResult{Status: StatusValidationFailed, Error: "edits is required"}.render(filePath), nil
	}
	editMap := make(map[string]string, len(rawEdits))
	for key, v := range rawEdits {
		replacement, ok := v.(string)
		if !ok {
			return FileResult{
				Status: StatusValidationFailed,
				Error:  fmt.Sprintf("edit %q: replacement must be a string", key),
			}.render(filePath), nil
		}
		editMap[key] = replacement
	}

	dryRun := false
	if v, ok := args["dry_run"].(bool); ok {
		dryRun = v
	}
	expectedHash, _ := args["expected_hash"].(string)

	clean, err := e.paths.CheckRead(filePath)
	if err != nil {
		return FileResult{Status: StatusValidationFailed, Error: err.Error()}.render(filePath), nil
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return FileResult{Status: StatusError, Error: err.Error()}.render(clean), nil
	}

	// compare-and-swap against the content the caller last read; a
	// mismatch leaves the file untouched
	if expectedHash != "" && Checksum(data) != expectedHash {
		return FileResult{
			Status: StatusHashMismatch,
			Error:  fmt.Sprintf("file changed since read: expected hash %s", expectedHash),
		}.render(clean), nil
	}

	content := string(data)
	lineCount := countLines(content)

	parsed, err := e.edits.Parse(editMap, lineCount)
	if err != nil {
		return FileResult{Status: StatusValidationFailed, Error: err.Error()}.render(clean), nil
	}

	newContent := guard.ApplyEdits(content, parsed)

	changed := make([]string, 0, len(parsed))
	for _, le := range parsed {
		changed = append(changed, le.Key)
	}
	sort.Strings(changed)

	var warnings []string
	if newContent == content {
		warnings = append(warnings, "edits produced identical content")
	}

	if dryRun {
		return FileResult{
			Status:        StatusSuccess,
			BytesWritten:  byteCount(0),
			Checksum:      Checksum([]byte(newContent)),
			ChangedRanges: changed,
			Preview:       previewOf(newContent),
			Warnings:      append(warnings, "dry run: no bytes written"),
		}.render(clean), nil
	}

	checksum, err := WriteFileAtomic(clean, []byte(newContent), 0644)
	if err != nil {
		return FileResult{Status: StatusError, Error: err.Error()}.render(clean), nil
	}

	return FileResult{
		Status:        StatusSuccess,
		BytesWritten:  byteCount(len(newContent)),
		Checksum:      checksum,
		ChangedRanges: changed,
		Warnings:      warnings,
	}.render(clean), nil
}

// countLines counts logical lines the way line-range keys address them:
// a trailing newline does not start a new line.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
