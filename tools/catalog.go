package tools

import (
	"fmt"

	"go.uber.org/zap"

	"toolgate/guard"
	"toolgate/registry"
)

// Descriptors returns the registry descriptors for the built-in tools.
func Descriptors() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "Bash",
			Description: "Executes a shell command and returns its combined output",
			InputSchema: registry.InputSchema{
				Type: "object",
				Properties: map[string]registry.Property{
					"command": {Type: "string", Description: "The command to execute"},
					"timeout": {Type: "number", Description: "Optional timeout in milliseconds (max 600000)"},
				},
				Required: []string{"command"},
			},
			Risk:       registry.RiskCaution,
			Categories: []string{"shell"},
			Enabled:    true,
		},
		{
			Name:        "Read",
			Description: "Reads a file and returns its content with line numbers",
			InputSchema: registry.InputSchema{
				Type: "object",
				Properties: map[string]registry.Property{
					"file_path": {Type: "string", Description: "Absolute path to the file to read"},
					"offset":    {Type: "number", Description: "1-indexed line to start from"},
					"limit":     {Type: "number", Description: "Maximum number of lines to return"},
				},
				Required: []string{"file_path"},
			},
			Risk:       registry.RiskSafe,
			Categories: []string{"filesystem", "readonly"},
			Enabled:    true,
		},
		{
			Name:        "Write",
			Description: "Atomically replaces a file's content",
			InputSchema: registry.InputSchema{
				Type: "object",
				Properties: map[string]registry.Property{
					"file_path":     {Type: "string", Description: "Absolute path to the file to write"},
					"content":       {Type: "string", Description: "Full new content of the file"},
					"overwrite":     {Type: "boolean", Description: "Allow replacing an existing file"},
					"expected_hash": {Type: "string", Description: "SHA-256 the file must currently have"},
					"dry_run":       {Type: "boolean", Description: "Validate and preview without writing"},
				},
				Required: []string{"file_path", "content"},
			},
			Risk:       registry.RiskCaution,
			Categories: []string{"filesystem"},
			Enabled:    true,
		},
		{
			Name:        "Edit",
			Description: "Applies 1-indexed line-range edits to a file atomically",
			InputSchema: registry.InputSchema{
				Type: "object",
				Properties: map[string]registry.Property{
					"file_path":     {Type: "string", Description: "Absolute path to the file to edit"},
					"edits":         {Type: "object", Description: `Map of "start" or "start-end" line ranges to replacement text`},
					"expected_hash": {Type: "string", Description: "SHA-256 the file must currently have"},
					"dry_run":       {Type: "boolean", Description: "Validate and preview without writing"},
				},
				Required: []string{"file_path", "edits"},
			},
			Risk:       registry.RiskCaution,
			Categories: []string{"filesystem"},
			Enabled:    true,
		},
		{
			Name:        "Glob",
			Description: "Finds files matching a glob pattern, newest first",
			InputSchema: registry.InputSchema{
				Type: "object",
				Properties: map[string]registry.Property{
					"pattern": {Type: "string", Description: "Glob pattern, ** supported"},
					"path":    {Type: "string", Description: "Directory to search in"},
				},
				Required: []string{"pattern"},
			},
			Risk:       registry.RiskSafe,
			Categories: []string{"filesystem", "readonly"},
			Enabled:    true,
		},
		{
			Name:        "Grep",
			Description: "Searches file contents with a regular expression",
			InputSchema: registry.InputSchema{
				Type: "object",
				Properties: map[string]registry.Property{
					"pattern":     {Type: "string", Description: "Regular expression to search for"},
					"path":        {Type: "string", Description: "File or directory to search"},
					"glob":        {Type: "string", Description: "Glob filter for file names"},
					"output_mode": {Type: "string", Description: "files_with_matches, content, or count"},
					"-i":          {Type: "boolean", Description: "Case insensitive search"},
					"-A":          {Type: "number", Description: "Lines of context after each match"},
					"-B":          {Type: "number", Description: "Lines of context before each match"},
					"-C":          {Type: "number", Description: "Lines of context around each match"},
					"head_limit":  {Type: "number", Description: "Stop after this many results"},
				},
				Required: []string{"pattern"},
			},
			Risk:       registry.RiskSafe,
			Categories: []string{"filesystem", "readonly"},
			Enabled:    true,
		},
	}
}

// RegisterBuiltins wires the built-in tools into the executor and their
// descriptors into the registry, with guards built from cfg. The Bash
// descriptor also gets a dynamic assessor so mutating or blocked
// commands raise the assessed risk above the static tier.
func RegisterBuiltins(reg *registry.Registry, ex *Executor, cfg *guard.Config, logger *zap.Logger) error {
	cmdGuard := guard.NewCommandGuard(cfg)
	pathGuard := guard.NewPathGuard(cfg)
	editGuard := guard.NewEditGuard(cfg)

	ex.Register(NewBashTool(cmdGuard))
	ex.Register(NewReadTool(pathGuard))
	ex.Register(NewWriteTool(pathGuard))
	ex.Register(NewEditTool(pathGuard, editGuard))
	ex.Register(NewGlobTool(pathGuard))
	ex.Register(NewGrepTool(pathGuard))

	for _, desc := range Descriptors() {
		if err := reg.Register(desc); err != nil {
			return fmt.Errorf("register %s: %w", desc.Name, err)
		}
	}
	if err := reg.RegisterAssessor("Bash", cmdGuard.Assess); err != nil {
		return err
	}

	logger.Debug("registered built-in tools", zap.Int("count", reg.Len()))
	return nil
}
