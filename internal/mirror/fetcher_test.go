package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRunner fails the first failures attempts and records every command it was given.
type fakeRunner struct {
	failures int
	commands []string
	output   string
}

var errSimulated = errors.New("simulated download failure")

func (r *fakeRunner) Run(_ context.Context, command string) error {
	r.commands = append(r.commands, command)
	if len(r.commands) <= r.failures {
		return errSimulated
	}

	return nil
}

func (r *fakeRunner) Output(ctx context.Context, command string) (string, error) {
	if err := r.Run(ctx, command); err != nil {
		return "", err
	}

	return r.output, nil
}

func (r *fakeRunner) RunOrSkip(ctx context.Context, command string, _ bool) error {
	return r.Run(ctx, command)
}

// newTestFetcher wires a fetcher with a recording sleeper.
func newTestFetcher(runner *fakeRunner, mirrors []string) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(runner, mirrors)

	var pauses []time.Duration

	f.sleep = func(d time.Duration) { pauses = append(pauses, d) }

	return f, &pauses
}

// TestFetchFirstMirrorWins ensures no further mirrors are tried after a success.
func TestFetchFirstMirrorWins(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	f, pauses := newTestFetcher(runner, []string{"https://a.example/pub/", "https://b.example/pub/"})

	err := f.Fetch(context.Background(), "wget -q %mirror%firefox/releases/140.0/file")
	require.NoError(t, err)
	require.Len(t, runner.commands, 1)
	require.Equal(t, "wget -q https://a.example/pub/firefox/releases/140.0/file", runner.commands[0])
	require.Empty(t, *pauses)
}

// TestFetchFallsBack verifies k failures then success yields exactly k+1 attempts and k pauses.
func TestFetchFallsBack(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failures: 1}
	f, pauses := newTestFetcher(runner, []string{"bad.example/", "good.example/"})

	err := f.Fetch(context.Background(), "wget %mirror%pkg")
	require.NoError(t, err)
	require.Len(t, runner.commands, 2)
	require.Equal(t, "wget bad.example/pkg", runner.commands[0])
	require.Equal(t, "wget good.example/pkg", runner.commands[1])
	require.Equal(t, []time.Duration{2 * time.Second}, *pauses)
}

// TestFetchExhaustion verifies every mirror is tried exactly once before the typed failure.
func TestFetchExhaustion(t *testing.T) {
	t.Parallel()

	mirrors := []string{"a/", "b/", "c/"}
	runner := &fakeRunner{failures: len(mirrors)}
	f, pauses := newTestFetcher(runner, mirrors)

	err := f.Fetch(context.Background(), "wget %mirror%pkg")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, len(mirrors), exhausted.Tried)
	require.Len(t, runner.commands, len(mirrors))
	require.Len(t, *pauses, len(mirrors))
}

// TestFetchOutputReturnsCapture ensures listing probes surface the captured output.
func TestFetchOutputReturnsCapture(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failures: 1, output: "firefox-140.0.tar.xz"}
	f, _ := newTestFetcher(runner, []string{"a/", "b/"})

	out, err := f.FetchOutput(context.Background(), "wget -q -O - %mirror%listing/")
	require.NoError(t, err)
	require.Equal(t, "firefox-140.0.tar.xz", out)
	require.Len(t, runner.commands, 2)
}

// TestFetchWithoutPlaceholder gives fixed-source templates a single attempt.
func TestFetchWithoutPlaceholder(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failures: 1}
	f, pauses := newTestFetcher(runner, []string{"a/", "b/", "c/"})

	err := f.Fetch(context.Background(), "wget https://fixed.example/pkg")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 1, exhausted.Tried)
	require.Len(t, *pauses, 1)
}
