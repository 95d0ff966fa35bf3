package guard

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds guardrail settings. Loaded from YAML; zero-value fields
// fall back to defaults.
type Config struct {
	AllowDangerous    bool     `yaml:"allow_dangerous"`
	BlockedPaths      []string `yaml:"blocked_paths"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	AllowOverwrite    bool     `yaml:"allow_overwrite"`
	MaxEdits          int      `yaml:"max_edits"`
	MaxEditBytes      int      `yaml:"max_edit_bytes"`
}

// DefaultConfig returns the built-in guard settings. The blocked paths
// cover common credential material; "" in the extension list is the
// no-extension category (permits files like Dockerfile or Makefile).
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	blocked := []string{
		"/etc/shadow",
		"/etc/sudoers",
		"/etc/ssl/private",
	}
	if home != "" {
		blocked = append(blocked,
			filepath.Join(home, ".ssh"),
			filepath.Join(home, ".aws", "credentials"),
			filepath.Join(home, ".gnupg"),
		)
	}
	return &Config{
		BlockedPaths: blocked,
		AllowedExtensions: []string{
			"", "txt", "md", "go", "py", "js", "ts", "json", "yaml", "yml",
			"toml", "sh", "sql", "html", "css", "csv", "xml", "rs", "java",
		},
		AllowOverwrite: true,
		MaxEdits:       50,
		MaxEditBytes:   1 << 20, // 1 MiB
	}
}

// LoadConfig reads guard settings from a YAML file. A missing file is
// not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read guard config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse guard config %s: %w", path, err)
	}
	if cfg.MaxEdits <= 0 {
		cfg.MaxEdits = DefaultConfig().MaxEdits
	}
	if cfg.MaxEditBytes <= 0 {
		cfg.MaxEditBytes = DefaultConfig().MaxEditBytes
	}
	return cfg, nil
}
