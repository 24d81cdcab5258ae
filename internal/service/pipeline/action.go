package pipeline

import (
	"errors"
	"fmt"
)

// Action selects which stages of a run execute.
type Action int

// Supported actions.
const (
	// GetVersionOnly resolves and prints the current version, nothing else.
	GetVersionOnly Action = iota
	// Build fetches, verifies and builds the package.
	Build
	// AddToRepo indexes an already-built package into the apt repository.
	AddToRepo
	// Upload synchronizes the apt repository to the upload target.
	Upload
	// Cleanup deletes the working files of an earlier run.
	Cleanup
	// All runs every stage.
	All
)

var errUnknownAction = errors.New("unknown action")

// ParseAction maps a CLI action name to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "get-version":
		return GetVersionOnly, nil
	case "build":
		return Build, nil
	case "add-to-repo":
		return AddToRepo, nil
	case "upload":
		return Upload, nil
	case "cleanup":
		return Cleanup, nil
	case "all":
		return All, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownAction, s)
	}
}

// String returns the CLI name of the action.
func (a Action) String() string {
	switch a {
	case GetVersionOnly:
		return "get-version"
	case Build:
		return "build"
	case AddToRepo:
		return "add-to-repo"
	case Upload:
		return "upload"
	case Cleanup:
		return "cleanup"
	case All:
		return "all"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// gates marks the stages an action executes. Version resolution runs for
// every action and is not gated.
type gates struct {
	confirmVersion bool
	buildPackage   bool
	publish        bool
	upload         bool
	cleanup        bool
}

// gatesFor returns the stage gating for the action.
func gatesFor(a Action) gates {
	switch a {
	case Build:
		return gates{confirmVersion: true, buildPackage: true}
	case AddToRepo:
		return gates{confirmVersion: true, publish: true}
	case Upload:
		return gates{confirmVersion: true, upload: true}
	case Cleanup:
		return gates{confirmVersion: true, cleanup: true}
	case All:
		return gates{confirmVersion: true, buildPackage: true, publish: true, upload: true, cleanup: true}
	default:
		return gates{}
	}
}

// mutating reports whether the action touches the staging area, requiring
// the single-run guard.
func (a Action) mutating() bool {
	return a != GetVersionOnly
}
