package execx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOutput verifies captured output is returned trimmed.
func TestOutput(t *testing.T) {
	t.Parallel()

	r := NewShellRunner(false)

	out, err := r.Output(context.Background(), "echo hello")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

// TestRunFailure ensures a non-zero exit surfaces as *ToolError with the code preserved.
func TestRunFailure(t *testing.T) {
	t.Parallel()

	r := NewShellRunner(false)

	err := r.Run(context.Background(), "exit 3")
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, 3, toolErr.ExitCode)
	require.Equal(t, "exit 3", toolErr.Command)
}

// TestOutputFailureKeepsOutput ensures captured output survives into the error.
func TestOutputFailureKeepsOutput(t *testing.T) {
	t.Parallel()

	r := NewShellRunner(false)

	_, err := r.Output(context.Background(), "echo broken; exit 1")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, "broken", toolErr.Output)
	require.Equal(t, 1, toolErr.ExitCode)
}

// TestRunOrSkip verifies dry-run suppression and the force override.
func TestRunOrSkip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	skipped := filepath.Join(dir, "skipped")
	forced := filepath.Join(dir, "forced")

	r := NewShellRunner(true)

	require.NoError(t, r.RunOrSkip(context.Background(), "touch "+skipped, false))
	_, err := os.Stat(skipped)
	require.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, r.RunOrSkip(context.Background(), "touch "+forced, true))
	_, err = os.Stat(forced)
	require.NoError(t, err)
}
