package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/verify"
)

var errArtifactNotFound = errors.New("artifact not found")

// Artifact is a located release artifact: its filename and the download
// location, which may still contain the mirror placeholder.
type Artifact struct {
	// Filename is the artifact's bare filename.
	Filename string
	// Source is the full download location of the artifact.
	Source string
}

// OutputFetcher captures the output of a mirrored command, falling back
// across the mirror list.
type OutputFetcher interface {
	FetchOutput(ctx context.Context, template string) (string, error)
}

// Locator discovers the concrete artifact filename for a resolved version.
// The filename is probed rather than derived, since vendor build identifiers
// vary between releases.
type Locator struct {
	fetcher OutputFetcher
	client  *http.Client
}

// NewLocator returns a Locator probing mirror listings through fetcher.
func NewLocator(fetcher OutputFetcher) *Locator {
	return &Locator{
		fetcher: fetcher,
		client:  &http.Client{Timeout: resolveTimeout},
	}
}

// Locate finds the artifact for the variant, architecture and version. Most
// variants scrape a mirror's directory listing; variants whose release
// server disabled directory browsing scrape their releases page for the
// final download link instead.
func (l *Locator) Locate(ctx context.Context, v Variant, arch Arch, version string) (Artifact, error) {
	logger.Infof(ctx, "Retrieving package name for %s %s", v.DisplayName, version)

	if page := v.ReleasesPage(); page != "" {
		return l.locateOnPage(ctx, v, arch, page)
	}

	listing := v.ListingURL(arch, version)

	out, err := l.fetcher.FetchOutput(ctx, verify.DownloadCommand("-", listing))
	if err != nil {
		return Artifact{}, fmt.Errorf("probe release listing: %w", err)
	}

	filename := v.ArtifactPattern().FindString(out)
	if filename == "" {
		return Artifact{}, fmt.Errorf("%w in listing %s", errArtifactNotFound, listing)
	}

	logger.Infof(ctx, "Found artifact %s", filename)

	return Artifact{Filename: filename, Source: listing + filename}, nil
}

// locateOnPage scrapes the variant's releases page for an absolute download
// link matching the architecture.
func (l *Locator) locateOnPage(ctx context.Context, v Variant, arch Arch, page string) (Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, http.NoBody)
	if err != nil {
		return Artifact{}, fmt.Errorf("build releases page request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Artifact{}, fmt.Errorf("fetch releases page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Artifact{}, fmt.Errorf("fetch releases page: %w: %d", errBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return Artifact{}, fmt.Errorf("read releases page: %w", err)
	}

	link := v.LandingLinkPattern(arch).FindString(string(body))
	if link == "" {
		return Artifact{}, fmt.Errorf("%w on releases page %s", errArtifactNotFound, page)
	}

	logger.Infof(ctx, "Found artifact %s", path.Base(link))

	return Artifact{Filename: path.Base(link), Source: link}, nil
}
