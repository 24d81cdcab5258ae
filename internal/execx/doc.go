// Package execx wraps invocation of external commands through the platform
// shell. Non-zero exits surface as a typed *ToolError carrying the command,
// exit code, and captured output, so callers never have to parse stderr.
//
// A runner is constructed once per invocation with the dry-run switch baked
// in; RunOrSkip suppresses mutating commands in dry-run mode unless the
// caller forces execution for read-only diagnostics.
package execx
