package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"toolgate/guard"
)

// GlobTool finds files matching glob patterns. The walk honors the
// path guard's blocklist so blocked trees are never enumerated.
type GlobTool struct {
	paths *guard.PathGuard
}

// NewGlobTool creates a new Glob tool
func NewGlobTool(paths *guard.PathGuard) *GlobTool {
	return &GlobTool{paths: paths}
}

// Name returns "Glob"
func (g *GlobTool) Name() string {
	return "Glob"
}

// Execute finds files matching the pattern, sorted by modification time (newest first)
func (g *GlobTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	// extract pattern (required)
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return Result{Content: "pattern is required", IsError: true}, nil
	}

	// extract optional base path
	basePath := "."
	if v, ok := args["path"].(string); ok && v != "" {
		basePath = v
	}

	root, err := filepath.Abs(basePath)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}
	if g.paths.Blocked(root) {
		return Result{Content: fmt.Sprintf("path is blocked by configuration: %s", root), IsError: true}, nil
	}
	if _, err := os.Stat(root); err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	type fileEntry struct {
		path    string
		modTime int64
	}
	var matches []fileEntry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors, continue walking
		}
		if d.IsDir() {
			if g.paths.Blocked(path) {
				return fs.SkipDir
			}
			return nil
		}
		if g.paths.Blocked(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return nil // invalid pattern, skip
		}
		if !matched {
			// also try matching just the filename for simple patterns
			matched, _ = doublestar.Match(pattern, filepath.Base(path))
		}
		if !matched {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, fileEntry{
			path:    path,
			modTime: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	// sort by modification time (newest first)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].modTime > matches[j].modTime
	})

	if len(matches) == 0 {
		return Result{Content: ""}, nil
	}

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.path
	}
	return Result{Content: strings.Join(paths, "\n")}, nil
}
