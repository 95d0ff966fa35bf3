package guard

import (
	"fmt"
	"regexp"

	"toolgate/registry"
)

// blockedPatterns is a fixed blocklist of dangerous command shapes.
// Matching is intentionally permissive: this is defense-in-depth behind
// human approval, not the sole safety barrier, so false negatives are
// preferred over blocking legitimate commands.
var blockedPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)(^|[\s;&|])sudo\s`), "privilege escalation via sudo"},
	{regexp.MustCompile(`(?i)\brm\s+(-[a-z]+\s+)*-[a-z]*[rf][a-z]*[rf][a-z]*\s+(/|/etc|/usr|/var|/bin|/sbin|/boot|/lib|/home|~)(\s|/\*|$)`), "recursive delete of a root-level path"},
	{regexp.MustCompile(`(?i)\bdd\b[^|;]*\bof=/dev/`), "raw write to a block device via dd"},
	{regexp.MustCompile(`(?i)>\s*/dev/sd[a-z]`), "redirect into a block device"},
	{regexp.MustCompile(`(?i)\bchmod\s+(-[a-z]+\s+)*777\s+/(etc|usr|var|bin|sbin|boot|lib)`), "world-writable permissions on a system path"},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`), "fork bomb"},
	{regexp.MustCompile(`(?i)\b(curl|wget)\b[^|;]*\|\s*(ba|z|da)?sh\b`), "download piped into a shell"},
	{regexp.MustCompile(`(?i)\b(mkfs(\.[a-z0-9]+)?|fdisk|parted)\b`), "filesystem formatting tool"},
}

// mutatingVerbs raise otherwise-unmatched commands to the caution tier.
var mutatingVerbs = regexp.MustCompile(`(?i)(^|[\s;&|])(rm|mv|cp|chmod|chown|kill|pkill|truncate|ln)\s`)

// CommandGuard rejects shell commands matching known-dangerous patterns.
type CommandGuard struct {
	// AllowDangerous bypasses every check. It is configured out-of-band
	// (config file or operator flag), never via tool arguments.
	AllowDangerous bool
}

// NewCommandGuard creates a guard from config.
func NewCommandGuard(cfg *Config) *CommandGuard {
	return &CommandGuard{AllowDangerous: cfg.AllowDangerous}
}

// Check returns an error naming the matched pattern when the command is
// blocked. A nil return means no blocklist entry matched, not that the
// command is proven safe.
func (g *CommandGuard) Check(command string) error {
	if g.AllowDangerous {
		return nil
	}
	for _, p := range blockedPatterns {
		if p.re.MatchString(command) {
			return fmt.Errorf("blocked command pattern: %s", p.reason)
		}
	}
	return nil
}

// Assess implements the registry's dynamic risk assessor for shell
// execution: risk follows the actual command text. The override is
// deliberately ignored here so blocked commands still show as dangerous
// to the approver even when execution would be permitted.
func (g *CommandGuard) Assess(args map[string]any) registry.Assessment {
	command, _ := args["command"].(string)
	if command == "" {
		return registry.Assessment{Level: registry.RiskSafe, Reason: "empty command"}
	}
	for _, p := range blockedPatterns {
		if p.re.MatchString(command) {
			return registry.Assessment{Level: registry.RiskDangerous, Reason: p.reason}
		}
	}
	if mutatingVerbs.MatchString(command) {
		return registry.Assessment{Level: registry.RiskCaution, Reason: "command mutates filesystem or process state"}
	}
	return registry.Assessment{Level: registry.RiskSafe, Reason: "no dangerous pattern matched"}
}
