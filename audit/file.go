package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const genesisInput = "toolgate-genesis"

// chainedEvent is the on-disk form: the event plus chain fields.
type chainedEvent struct {
	Seq      uint64 `json:"seq"`
	PrevHash string `json:"prev_hash"`
	Event    Event  `json:"event"`
	Hash     string `json:"hash"` // SHA-256 of this record with Hash empty
}

// FileSink is an append-only, hash-chained JSONL audit log. Each record
// carries the hash of its predecessor, so deletion or edits anywhere in
// the file break the chain and are caught by Verify.
type FileSink struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
}

// NewFileSink opens or creates the log at path and reads the last record
// to resume the chain across restarts.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	s := &FileSink{path: path, prevHash: genesisHash()}

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		lines := splitLines(data)
		if len(lines) > 0 {
			var last chainedEvent
			if err := json.Unmarshal(lines[len(lines)-1], &last); err == nil {
				s.seq = last.Seq
				s.prevHash = last.Hash
			}
		}
	}

	return s, nil
}

// Record appends the event to the log.
func (s *FileSink) Record(e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec := chainedEvent{Seq: s.seq, PrevHash: s.prevHash, Event: *e}
	rec.Hash = computeHash(rec)
	s.prevHash = rec.Hash

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per append.
func (s *FileSink) Close() error { return nil }

// Path returns the log file path.
func (s *FileSink) Path() string { return s.path }

// Verify checks the hash chain of the log at path. An empty or missing
// chain field anywhere, a sequence gap, or a modified byte fails the
// check with a message naming the first bad line.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	lines := splitLines(data)
	expectedPrev := genesisHash()
	var prevSeq uint64

	for i, line := range lines {
		var rec chainedEvent
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if rec.Seq != prevSeq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, prevSeq+1, rec.Seq)
		}
		if rec.PrevHash != expectedPrev {
			return fmt.Errorf("line %d: prev_hash mismatch", i+1)
		}
		if computed := computeHash(rec); rec.Hash != computed {
			return fmt.Errorf("line %d: hash mismatch", i+1)
		}
		expectedPrev = rec.Hash
		prevSeq = rec.Seq
	}

	return nil
}

// Tail returns the last n events from the log at path.
func Tail(path string, n int) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	lines := splitLines(data)
	if n > len(lines) {
		n = len(lines)
	}

	events := make([]Event, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var rec chainedEvent
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		events = append(events, rec.Event)
	}
	return events, nil
}

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return fmt.Sprintf("%x", h)
}

func computeHash(rec chainedEvent) string {
	rec.Hash = ""
	data, _ := json.Marshal(rec)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
