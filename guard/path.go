package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathGuard validates file paths for the read and write tool families.
type PathGuard struct {
	blockedPaths      []string
	allowedExtensions map[string]bool // lowercase, "" = no extension
	allowOverwrite    bool
}

// NewPathGuard creates a guard from config. An empty extension list
// permits every extension.
func NewPathGuard(cfg *Config) *PathGuard {
	g := &PathGuard{
		blockedPaths:   cfg.BlockedPaths,
		allowOverwrite: cfg.AllowOverwrite,
	}
	if len(cfg.AllowedExtensions) > 0 {
		g.allowedExtensions = make(map[string]bool, len(cfg.AllowedExtensions))
		for _, ext := range cfg.AllowedExtensions {
			g.allowedExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
	}
	return g
}

// CheckRead canonicalizes the path and validates it for reading.
// Returns the canonical path.
func (g *PathGuard) CheckRead(path string) (string, error) {
	clean, err := g.canonicalize(path)
	if err != nil {
		return "", err
	}
	if err := g.checkExtension(clean); err != nil {
		return "", err
	}

	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file does not exist: %s", clean)
		}
		return "", fmt.Errorf("stat %s: %w", clean, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", clean)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("path is not a regular file: %s", clean)
	}
	return clean, nil
}

// CheckWrite canonicalizes the path and validates it for writing. An
// existing target is only permitted when the caller requested overwrite
// AND the guard config allows it.
func (g *PathGuard) CheckWrite(path string, overwrite bool) (string, error) {
	clean, err := g.canonicalize(path)
	if err != nil {
		return "", err
	}
	if err := g.checkExtension(clean); err != nil {
		return "", err
	}

	info, err := os.Stat(clean)
	switch {
	case err == nil:
		if info.IsDir() {
			return "", fmt.Errorf("path is a directory: %s", clean)
		}
		if !overwrite {
			return "", fmt.Errorf("file already exists (overwrite not requested): %s", clean)
		}
		if !g.allowOverwrite {
			return "", fmt.Errorf("overwriting existing files is disabled by configuration: %s", clean)
		}
	case os.IsNotExist(err):
		// new file, fine
	default:
		return "", fmt.Errorf("stat %s: %w", clean, err)
	}
	return clean, nil
}

func (g *PathGuard) canonicalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	clean := filepath.Clean(abs)

	// Abs+Clean resolves traversal lexically; keep the check anyway so a
	// surviving ".." segment can never slip through.
	for _, seg := range strings.Split(clean, string(filepath.Separator)) {
		if seg == ".." {
			return "", fmt.Errorf("path contains parent traversal: %s", path)
		}
	}

	if g.Blocked(clean) {
		return "", fmt.Errorf("path is blocked by configuration: %s", clean)
	}
	return clean, nil
}

// Blocked reports whether the path falls under a configured blocked
// prefix. The search tools use it to prune their directory walks; an
// unresolvable path counts as blocked.
func (g *PathGuard) Blocked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	clean := filepath.Clean(abs)
	for _, blocked := range g.blockedPaths {
		if clean == blocked || strings.HasPrefix(clean, blocked+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (g *PathGuard) checkExtension(path string) error {
	if g.allowedExtensions == nil {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !g.allowedExtensions[ext] {
		if ext == "" {
			return fmt.Errorf("files without an extension are not allowed: %s", path)
		}
		return fmt.Errorf("extension %q is not allowed: %s", ext, path)
	}
	return nil
}
