package tools

import "encoding/json"

// Statuses reported by file-modifying tools.
const (
	StatusSuccess          = "success"
	StatusHashMismatch     = "hash_mismatch"
	StatusValidationFailed = "validation_failed"
	StatusError            = "error"
)

// FileResult is the structured payload file-modifying tools return as
// JSON in Result.Content.
type FileResult struct {
	Status        string   `json:"status"`
	BytesWritten  *int     `json:"bytesWritten,omitempty"`
	Checksum      string   `json:"checksum,omitempty"`
	ChangedRanges []string `json:"changedRanges,omitempty"`
	Preview       string   `json:"preview,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// byteCount boxes a byte count so a zero-byte write still reports
// bytesWritten in the JSON payload.
func byteCount(n int) *int { return &n }

// render marshals the payload into a tool Result. Non-success statuses
// mark the result as an error so the model sees the failure.
func (fr FileResult) render(filePath string) Result {
	data, err := json.Marshal(fr)
	if err != nil {
		return Result{Content: `{"status":"error","error":"result serialization failed"}`, IsError: true}
	}
	return Result{
		Content:  string(data),
		IsError:  fr.Status != StatusSuccess,
		FilePath: filePath,
	}
}
