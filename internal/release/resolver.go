package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver/v4"

	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/prompt"
)

const (
	// resolveTimeout bounds a single version-discovery request.
	resolveTimeout = 30 * time.Second

	// maxPageSize bounds how much of a scraped page is read.
	maxPageSize = 1 << 20
)

var (
	errVersionNotFound = errors.New("version not found in vendor response")
	errNoRedirect      = errors.New("vendor redirector did not answer with a redirect")
	errBadVersionShape = errors.New("resolved version has unexpected shape")
	errBadStatus       = errors.New("vendor answered with an error status")

	// numericVersionPattern accepts dotted numeric versions the suite
	// publishes, which may carry a fourth segment semver rejects.
	numericVersionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)+$`)
)

// Resolver discovers the current published version of a variant and walks
// the operator through confirming or overriding it.
type Resolver struct {
	client  *http.Client
	confirm prompt.Confirmer
}

// NewResolver returns a Resolver prompting through confirm. The HTTP client
// does not follow redirects, so redirector answers can be read directly.
func NewResolver(confirm prompt.Confirmer) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: resolveTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		confirm: confirm,
	}
}

// Discover fetches the variant's version endpoint and extracts the current
// version token. The result is validated for shape but not yet confirmed.
func (r *Resolver) Discover(ctx context.Context, v Variant, arch Arch) (string, error) {
	logger.Infof(ctx, "Retrieving the version of the latest release of %s from the vendor website", v.DisplayName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.VersionEndpoint(arch), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build version request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch version endpoint: %w", err)
	}
	defer resp.Body.Close()

	var subject string

	if v.ResolvesByRedirect() {
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return "", fmt.Errorf("%w: status %d", errNoRedirect, resp.StatusCode)
		}

		subject = resp.Header.Get("Location")
	} else {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch version page: %w: %d", errBadStatus, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
		if err != nil {
			return "", fmt.Errorf("read version page: %w", err)
		}

		subject = string(body)
	}

	match := v.versionPattern.FindStringSubmatch(subject)
	if len(match) < 2 {
		return "", fmt.Errorf("%w (%s)", errVersionNotFound, v.DisplayName)
	}

	version := match[1]
	if err := checkVersionShape(v, version); err != nil {
		return "", err
	}

	logger.Infof(ctx, "Latest release of %s is %s", v.DisplayName, version)

	return version, nil
}

// Resolve discovers and confirms the version. Later stages never observe an
// unconfirmed version.
func (r *Resolver) Resolve(ctx context.Context, v Variant, arch Arch) (string, error) {
	version, err := r.Discover(ctx, v, arch)
	if err != nil {
		return "", err
	}

	return r.Confirm(ctx, v, version)
}

// Confirm presents the discovered version and lets the operator accept it,
// override it with a re-confirmed free-text value, or quit.
func (r *Resolver) Confirm(ctx context.Context, v Variant, version string) (string, error) {
	ok, err := r.confirm.Confirm(fmt.Sprintf(
		"The most recent release of %s is detected to be %s. Please make sure this is correct before proceeding. Is it [y/n]?",
		v.DisplayName, version))
	if err != nil {
		return "", err
	}

	if ok {
		return version, nil
	}

	for {
		answer, err := r.confirm.Ask(fmt.Sprintf(
			"Please enter the version of %s you wish to install, or 'q' to quit: ", v.DisplayName))
		if err != nil {
			return "", err
		}

		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}

		ok, err := r.confirm.Confirm(fmt.Sprintf("You have chosen version '%s'. Is that correct [y/n]?", answer))
		if err != nil {
			return "", err
		}

		if ok {
			logger.Infof(ctx, "Using version %s", answer)
			return answer, nil
		}
	}
}

// checkVersionShape validates the resolved version: a semver-parseable core,
// or a dotted numeric value, with the variant's channel marker allowed as a
// trailing suffix.
func checkVersionShape(v Variant, version string) error {
	core := strings.TrimSuffix(version, v.VersionSuffix())
	if core == "" {
		return fmt.Errorf("%w: %q", errBadVersionShape, version)
	}

	if _, err := semver.ParseTolerant(core); err == nil {
		return nil
	}

	if numericVersionPattern.MatchString(core) {
		return nil
	}

	return fmt.Errorf("%w: %q", errBadVersionShape, version)
}
