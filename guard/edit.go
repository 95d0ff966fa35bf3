package guard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LineEdit is one validated line-range replacement. Start and End are
// 1-indexed and inclusive. An empty Replacement deletes the range.
type LineEdit struct {
	Key         string // original "start" or "start-end" key
	Start, End  int
	Replacement string
}

// EditGuard validates line-range edit requests against a file's length
// and the configured ceilings.
type EditGuard struct {
	MaxEdits        int
	MaxPayloadBytes int
}

// NewEditGuard creates a guard from config.
func NewEditGuard(cfg *Config) *EditGuard {
	return &EditGuard{MaxEdits: cfg.MaxEdits, MaxPayloadBytes: cfg.MaxEditBytes}
}

// Parse validates an edit map against a file of lineCount lines and
// returns the edits sorted by descending start line, ready for Apply.
func (g *EditGuard) Parse(edits map[string]string, lineCount int) ([]LineEdit, error) {
	if len(edits) == 0 {
		return nil, fmt.Errorf("no edits given")
	}
	if g.MaxEdits > 0 && len(edits) > g.MaxEdits {
		return nil, fmt.Errorf("too many edits: %d exceeds limit of %d", len(edits), g.MaxEdits)
	}

	parsed := make([]LineEdit, 0, len(edits))
	payload := 0
	for key, replacement := range edits {
		start, end, err := parseRangeKey(key)
		if err != nil {
			return nil, err
		}
		if start < 1 {
			return nil, fmt.Errorf("range %q: start %d is below line 1", key, start)
		}
		if end > lineCount {
			return nil, fmt.Errorf("range %q: end %d exceeds file length of %d lines", key, end, lineCount)
		}
		payload += len(replacement)
		parsed = append(parsed, LineEdit{Key: key, Start: start, End: end, Replacement: replacement})
	}
	if g.MaxPayloadBytes > 0 && payload > g.MaxPayloadBytes {
		return nil, fmt.Errorf("edit payload of %d bytes exceeds limit of %d", payload, g.MaxPayloadBytes)
	}

	// Overlap check on ascending order; adjacent ranges are fine.
	byStart := make([]LineEdit, len(parsed))
	copy(byStart, parsed)
	sort.Slice(byStart, func(i, j int) bool { return byStart[i].Start < byStart[j].Start })
	for i := 1; i < len(byStart); i++ {
		if byStart[i].Start <= byStart[i-1].End {
			return nil, fmt.Errorf("ranges %q and %q overlap", byStart[i-1].Key, byStart[i].Key)
		}
	}

	// Apply bottom-to-top so lower-numbered ranges stay valid as later
	// edits shift the file.
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Start > parsed[j].Start })
	return parsed, nil
}

func parseRangeKey(key string) (int, int, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return 0, 0, fmt.Errorf("empty range key")
	}

	startStr, endStr, isRange := strings.Cut(trimmed, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: malformed start line", key)
	}
	if !isRange {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: malformed end line", key)
	}
	if start > end {
		return 0, 0, fmt.Errorf("range %q: start %d is after end %d", key, start, end)
	}
	return start, end, nil
}

// ApplyEdits applies validated edits to content. Edits must come from
// Parse (descending start order). The original line-ending style is
// detected and preserved.
func ApplyEdits(content string, edits []LineEdit) string {
	eol := "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	trailingNewline := strings.HasSuffix(normalized, "\n")
	normalized = strings.TrimSuffix(normalized, "\n")

	var lines []string
	if normalized != "" {
		lines = strings.Split(normalized, "\n")
	}

	for _, e := range edits {
		head := lines[:e.Start-1]
		tail := lines[e.End:]
		if e.Replacement == "" {
			lines = append(append([]string{}, head...), tail...)
			continue
		}
		repl := strings.Split(strings.TrimSuffix(strings.ReplaceAll(e.Replacement, "\r\n", "\n"), "\n"), "\n")
		merged := make([]string, 0, len(head)+len(repl)+len(tail))
		merged = append(merged, head...)
		merged = append(merged, repl...)
		merged = append(merged, tail...)
		lines = merged
	}

	out := strings.Join(lines, eol)
	if trailingNewline && out != "" {
		out += eol
	}
	return out
}
