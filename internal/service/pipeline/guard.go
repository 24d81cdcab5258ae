package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/mozdeb/mozdeb/internal/logger"
)

// markerFilename marks that a run is mutating the staging area, to avoid two
// instances packaging into the same tree.
const markerFilename = "mozdeb-run-marker.bin"

var errAlreadyRunning = errors.New("another mozdeb run appears to be active")

// acquireRunMarker claims the staging area for this run. A leftover marker
// without a live mozdeb process is treated as stale and removed. The
// returned function releases the claim.
func acquireRunMarker(ctx context.Context, dir string) (func(), error) {
	marker := filepath.Join(dir, markerFilename)

	_, err := os.Stat(marker)

	switch {
	case err == nil:
		if anotherInstanceRunning() {
			return nil, fmt.Errorf("%w: remove %s if that is not the case", errAlreadyRunning, marker)
		}

		logger.Info(ctx, "Found a stale run marker, removing it")

		if err := os.Remove(marker); err != nil {
			return nil, fmt.Errorf("remove stale run marker: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read run marker: %w", err)
	}

	if err := os.WriteFile(marker, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("write run marker: %w", err)
	}

	return func() { _ = os.Remove(marker) }, nil
}

// anotherInstanceRunning scans the process table for a mozdeb process other
// than this one. Scan failures count as not running; the marker check is a
// convenience, not a lock.
func anotherInstanceRunning() bool {
	processes, err := ps.Processes()
	if err != nil {
		return false
	}

	self := os.Getpid()

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if strings.TrimSuffix(process.Executable(), ".exe") == "mozdeb" {
			return true
		}
	}

	return false
}
