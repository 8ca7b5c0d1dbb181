package claudecode

import "strings"

// SpawnOptions configures how to spawn a Claude Code process.
type SpawnOptions struct {
	// SessionID is the unique session identifier (used for --session-id).
	SessionID string

	// WorkDir is the working directory for the process, normally the
	// project path the session operates on.
	WorkDir string

	// Query is the prompt passed via -p.
	Query string

	// Model specifies which model to use (sonnet, opus, haiku).
	Model string

	// PermissionMode is the permission level (plan, default, etc).
	PermissionMode string

	// AllowedTools restricts which tools the agent can use.
	AllowedTools []string

	// SystemPrompt is appended to Claude's system prompt.
	SystemPrompt string

	// Binary overrides the executable name. Defaults to "claude".
	Binary string
}

func (o *SpawnOptions) binary() string {
	if o.Binary != "" {
		return o.Binary
	}
	return "claude"
}

// Args builds the command-line arguments for Claude Code. Output is always
// stream-json with --verbose so every turn is emitted as its own line.
func (o *SpawnOptions) Args() []string {
	args := []string{
		"-p", o.Query,
		"--output-format", "stream-json",
		"--verbose",
	}

	if o.SessionID != "" {
		args = append(args, "--session-id", o.SessionID)
	}

	if o.Model != "" {
		args = append(args, "--model", o.Model)
	}

	if o.PermissionMode != "" {
		args = append(args, "--permission-mode", o.PermissionMode)
	}

	if len(o.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(o.AllowedTools, ","))
	}

	if o.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", o.SystemPrompt)
	}

	return args
}

// CommandString returns the full command that would be executed (for logging).
func (o *SpawnOptions) CommandString() string {
	args := o.Args()
	quoted := make([]string, len(args))
	for i, arg := range args {
		if strings.Contains(arg, " ") || strings.Contains(arg, "\n") {
			// Truncate long prompts for readability
			if len(arg) > 100 {
				arg = arg[:97] + "..."
			}
			quoted[i] = `"` + arg + `"`
		} else {
			quoted[i] = arg
		}
	}
	return o.binary() + " " + strings.Join(quoted, " ")
}
