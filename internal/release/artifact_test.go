package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedOutput returns canned listing output and records the templates it
// was asked for.
type scriptedOutput struct {
	output    string
	templates []string
}

func (s *scriptedOutput) FetchOutput(_ context.Context, template string) (string, error) {
	s.templates = append(s.templates, template)
	return s.output, nil
}

func TestLocateFromListing(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedOutput{output: `Index of /pub/firefox/releases/140.0/linux-x86_64/en-US/
<a href="firefox-140.0.tar.xz">firefox-140.0.tar.xz</a>
<a href="firefox-140.0.tar.xz.asc">firefox-140.0.tar.xz.asc</a>`}

	v := VariantFor(Browser)
	locator := NewLocator(fetcher)

	artifact, err := locator.Locate(context.Background(), v, X64, "140.0")
	require.NoError(t, err)
	require.Equal(t, "firefox-140.0.tar.xz", artifact.Filename)
	require.Equal(t, v.ListingURL(X64, "140.0")+"firefox-140.0.tar.xz", artifact.Source)

	// The listing is probed through the mirror fallback, streamed to stdout.
	require.Len(t, fetcher.templates, 1)
	require.Contains(t, fetcher.templates[0], "-O - ")
	require.Contains(t, fetcher.templates[0], v.ListingURL(X64, "140.0"))
}

func TestLocateNothingMatches(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedOutput{output: "Index of /pub/firefox/releases/140.0/\n"}
	locator := NewLocator(fetcher)

	_, err := locator.Locate(context.Background(), VariantFor(Browser), X64, "140.0")
	require.ErrorIs(t, err, errArtifactNotFound)
}

func TestLocateOnReleasesPage(t *testing.T) {
	t.Parallel()

	link := "https://archive.mozilla.org/pub/seamonkey/releases/2.53.19/linux-i686/en-US/seamonkey-2.53.19.en-US.linux-i686.tar.bz2"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><a href="` + link + `">Linux 32-bit</a></html>`))
	}))
	defer srv.Close()

	v := VariantFor(Suite)
	v.releasesPage = srv.URL

	fetcher := &scriptedOutput{}
	locator := NewLocator(fetcher)

	artifact, err := locator.Locate(context.Background(), v, X86, "2.53.19")
	require.NoError(t, err)
	require.Equal(t, "seamonkey-2.53.19.en-US.linux-i686.tar.bz2", artifact.Filename)
	require.Equal(t, link, artifact.Source)

	// No mirror probing for this variant.
	require.Empty(t, fetcher.templates)
}

func TestLocateOnReleasesPageErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := VariantFor(Suite)
	v.releasesPage = srv.URL

	locator := NewLocator(&scriptedOutput{})

	_, err := locator.Locate(context.Background(), v, X86, "2.53.19")
	require.ErrorIs(t, err, errBadStatus)
	require.NotErrorIs(t, err, errArtifactNotFound)
}

func TestLocateOnReleasesPageWrongArch(t *testing.T) {
	t.Parallel()

	link := "https://archive.mozilla.org/pub/seamonkey/releases/2.53.19/linux-i686/en-US/seamonkey-2.53.19.en-US.linux-i686.tar.bz2"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><a href="` + link + `">Linux 32-bit</a></html>`))
	}))
	defer srv.Close()

	v := VariantFor(Suite)
	v.releasesPage = srv.URL

	locator := NewLocator(&scriptedOutput{})

	_, err := locator.Locate(context.Background(), v, X64, "2.53.19")
	require.ErrorIs(t, err, errArtifactNotFound)
}
