package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"toolgate/guard"
)

// GrepTool searches files for patterns using regex. Every file it reads
// passes the same path guard checks as the read tool, so blocked paths
// cannot be exfiltrated through search output.
type GrepTool struct {
	paths *guard.PathGuard
}

// NewGrepTool creates a new Grep tool
func NewGrepTool(paths *guard.PathGuard) *GrepTool {
	return &GrepTool{paths: paths}
}

// Name returns "Grep"
func (g *GrepTool) Name() string {
	return "Grep"
}

// Execute searches for pattern in files
func (g *GrepTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	// extract pattern (required)
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return Result{Content: "pattern is required", IsError: true}, nil
	}

	// case insensitive flag
	caseInsensitive := false
	if v, ok := args["-i"].(bool); ok {
		caseInsensitive = v
	}

	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Result{Content: fmt.Sprintf("invalid regex: %v", err), IsError: true}, nil
	}

	// extract path (optional, defaults to cwd)
	searchPath := "."
	if v, ok := args["path"].(string); ok && v != "" {
		searchPath = v
	}

	info, err := os.Stat(searchPath)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	// extract glob filter
	globPattern := ""
	if v, ok := args["glob"].(string); ok {
		globPattern = v
	}

	// extract output_mode (default: files_with_matches)
	outputMode := "files_with_matches"
	if v, ok := args["output_mode"].(string); ok {
		outputMode = v
	}

	// extract context lines (-C, -A, -B)
	contextBefore := 0
	contextAfter := 0
	if v, ok := args["-C"].(float64); ok && v > 0 {
		contextBefore = int(v)
		contextAfter = int(v)
	}
	if v, ok := args["-A"].(float64); ok && v > 0 {
		contextAfter = int(v)
	}
	if v, ok := args["-B"].(float64); ok && v > 0 {
		contextBefore = int(v)
	}

	// extract head_limit
	headLimit := 0
	if v, ok := args["head_limit"].(float64); ok && v > 0 {
		headLimit = int(v)
	}

	var results []string
	var totalCount int

	// search function for a single file
	searchFile := func(filePath string) error {
		if headLimit > 0 && len(results) >= headLimit {
			return filepath.SkipAll
		}

		canonical, err := g.paths.CheckRead(filePath)
		if err != nil {
			return nil // guard refused the file, skip it
		}

		data, err := os.ReadFile(canonical)
		if err != nil {
			return nil // skip unreadable files
		}

		// skip binary files (null bytes in the first 8000 bytes)
		checkLen := len(data)
		if checkLen > 8000 {
			checkLen = 8000
		}
		if bytes.Contains(data[:checkLen], []byte{0}) {
			return nil
		}

		lines := strings.Split(string(data), "\n")
		var matches []int

		for i, line := range lines {
			if re.MatchString(line) {
				matches = append(matches, i)
			}
		}

		if len(matches) == 0 {
			return nil
		}

		switch outputMode {
		case "files_with_matches":
			results = append(results, filePath)

		case "count":
			totalCount += len(matches)

		case "content":
			// collect lines with context
			includedLines := make(map[int]bool)
			for _, matchIdx := range matches {
				start := matchIdx - contextBefore
				if start < 0 {
					start = 0
				}
				end := matchIdx + contextAfter + 1
				if end > len(lines) {
					end = len(lines)
				}
				for i := start; i < end; i++ {
					includedLines[i] = true
				}
			}

			var sb strings.Builder
			sb.WriteString(filePath)
			sb.WriteString(":\n")
			for i := 0; i < len(lines); i++ {
				if includedLines[i] {
					sb.WriteString(fmt.Sprintf("%d\t%s\n", i+1, lines[i]))
				}
			}
			results = append(results, strings.TrimSuffix(sb.String(), "\n"))
		}

		return nil
	}

	if info.IsDir() {
		if g.paths.Blocked(searchPath) {
			return Result{Content: fmt.Sprintf("path is blocked by configuration: %s", searchPath), IsError: true}, nil
		}
		err = filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors
			}
			if d.IsDir() {
				if g.paths.Blocked(path) {
					return filepath.SkipDir
				}
				return nil
			}

			if globPattern != "" {
				relPath, err := filepath.Rel(searchPath, path)
				if err != nil {
					return nil
				}
				matched, err := doublestar.Match(globPattern, relPath)
				if err != nil {
					return nil
				}
				if !matched {
					matched, _ = doublestar.Match(globPattern, filepath.Base(path))
				}
				if !matched {
					return nil
				}
			}

			return searchFile(path)
		})
	} else {
		// single-file search surfaces guard refusals instead of
		// silently returning nothing
		if _, checkErr := g.paths.CheckRead(searchPath); checkErr != nil {
			return Result{Content: checkErr.Error(), IsError: true}, nil
		}
		err = searchFile(searchPath)
	}

	if err != nil && err != filepath.SkipAll {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	// format final output
	var output string
	switch outputMode {
	case "count":
		output = fmt.Sprintf("%d", totalCount)
	default:
		if headLimit > 0 && len(results) > headLimit {
			results = results[:headLimit]
		}
		output = strings.Join(results, "\n")
	}

	return Result{Content: output}, nil
}
