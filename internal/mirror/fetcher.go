package mirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mozdeb/mozdeb/internal/execx"
	"github.com/mozdeb/mozdeb/internal/logger"
)

// Placeholder is substituted with a mirror base location in command templates.
const Placeholder = "%mirror%"

// retryPause is the fixed pause between mirror attempts.
const retryPause = 2 * time.Second

// ExhaustedError reports that every mirror failed for a request.
type ExhaustedError struct {
	// Template is the command template that could not be satisfied.
	Template string
	// Tried is the number of attempts made.
	Tried int
}

// Error renders the exhausted template and attempt count.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d mirror attempts failed for %q", e.Tried, e.Template)
}

// Fetcher runs download command templates against an ordered mirror list.
type Fetcher struct {
	runner  execx.Runner
	mirrors []string
	// sleep is replaceable so tests can observe pauses without waiting.
	sleep func(time.Duration)
}

// NewFetcher returns a Fetcher over the given mirror list, priority order.
func NewFetcher(runner execx.Runner, mirrors []string) *Fetcher {
	return &Fetcher{
		runner:  runner,
		mirrors: mirrors,
		sleep:   time.Sleep,
	}
}

// Fetch executes the command template once per mirror until one succeeds.
// Templates without the placeholder address a single fixed source and get
// exactly one attempt. Downloads always execute, even in dry-run mode.
func (f *Fetcher) Fetch(ctx context.Context, template string) error {
	_, err := f.attempt(ctx, template, func(command string) (string, error) {
		return "", f.runner.Run(ctx, command)
	})

	return err
}

// FetchOutput is Fetch for commands whose captured output is the result,
// such as directory-listing probes.
func (f *Fetcher) FetchOutput(ctx context.Context, template string) (string, error) {
	return f.attempt(ctx, template, func(command string) (string, error) {
		return f.runner.Output(ctx, command)
	})
}

// attempt drives the fallback loop shared by Fetch and FetchOutput.
func (f *Fetcher) attempt(ctx context.Context, template string, run func(string) (string, error)) (string, error) {
	mirrors := f.mirrors
	if !strings.Contains(template, Placeholder) {
		mirrors = []string{""}
	}

	tried := 0

	for _, m := range mirrors {
		command := strings.ReplaceAll(template, Placeholder, m)
		tried++

		out, err := run(command)
		if err == nil {
			return out, nil
		}

		logger.Warnf(ctx, "Error downloading (%v). Trying again, hoping for a different mirror.", err)
		f.sleep(retryPause)
	}

	return "", &ExhaustedError{Template: template, Tried: tried}
}
