package execx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mozdeb/mozdeb/internal/logger"
)

// Runner executes external command lines.
type Runner interface {
	// Run executes the command line, streaming output to the terminal.
	Run(ctx context.Context, command string) error
	// Output executes the command line and returns its combined output, trimmed.
	Output(ctx context.Context, command string) (string, error)
	// RunOrSkip executes the command line unless the runner is in dry-run
	// mode. force overrides dry-run for commands that are safe to execute
	// anyway (read-only diagnostics, existence checks).
	RunOrSkip(ctx context.Context, command string, force bool) error
}

// ToolError reports a command that exited with a non-zero status.
type ToolError struct {
	// Command is the full command line that failed.
	Command string
	// ExitCode is the process exit status.
	ExitCode int
	// Output is the captured combined output, when available.
	Output string
}

// Error renders the failing command and its exit status.
func (e *ToolError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
}

// ShellRunner runs command lines through `sh -c`.
type ShellRunner struct {
	// dryRun suppresses execution in RunOrSkip unless forced.
	dryRun bool
}

// NewShellRunner returns a runner with the dry-run switch baked in.
func NewShellRunner(dryRun bool) *ShellRunner {
	return &ShellRunner{dryRun: dryRun}
}

// Run executes the command line, inheriting the terminal for output.
func (r *ShellRunner) Run(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		return toToolError(command, "", err)
	}

	return nil
}

// Output executes the command line and returns its combined output with
// surrounding whitespace trimmed.
func (r *ShellRunner) Output(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", toToolError(command, string(out), err)
	}

	return strings.TrimSpace(string(out)), nil
}

// RunOrSkip executes the command line unless dry-run mode suppresses it.
func (r *ShellRunner) RunOrSkip(ctx context.Context, command string, force bool) error {
	if r.dryRun && !force {
		logger.Infof(ctx, "Dry run, skipping: %s", command)
		return nil
	}

	return r.Run(ctx, command)
}

// toToolError converts an exec failure into a *ToolError, preserving the
// exit code when the process ran at all.
func toToolError(command, output string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Output:   strings.TrimSpace(output),
		}
	}

	return fmt.Errorf("start command %q: %w", command, err)
}
