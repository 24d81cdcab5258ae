package release

import (
	"crypto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mozdeb/mozdeb/internal/mirror"
)

// TestVariantTable checks that every product line resolves to a complete
// capability table.
func TestVariantTable(t *testing.T) {
	t.Parallel()

	for _, p := range []Product{Browser, BrowserESR, MailClient, Suite} {
		v := VariantFor(p)

		require.Equal(t, p, v.Product)
		require.NotEmpty(t, v.Slug)
		require.NotEmpty(t, v.DisplayName)
		require.True(t, strings.HasSuffix(v.PackageName, "-mozilla-build"))
		require.NotEmpty(t, v.Provides)
		require.NotEmpty(t, v.Menu.Name)
		require.NotEmpty(t, v.Menu.GenericName)
		require.NotEmpty(t, v.Menu.IconRelPath)
		require.NotEmpty(t, v.manifestName)
		require.NotNil(t, v.versionPattern)
	}
}

// TestSignedVariantPolicies checks the browser, extended-support and mail
// variants all require an attested SHA-512 manifest.
func TestSignedVariantPolicies(t *testing.T) {
	t.Parallel()

	for _, p := range []Product{Browser, BrowserESR, MailClient} {
		v := VariantFor(p)
		pol := v.VerifyPolicy(X64, "140.0")

		require.True(t, pol.RequireSignature)
		require.Equal(t, crypto.SHA512, pol.Hash)
		require.Equal(t, "SHA512SUMS", pol.ManifestName)
		require.Equal(t, []string{mozillaReleaseKey}, pol.KeyIDs)
		require.Contains(t, pol.ManifestTemplate, mirror.Placeholder)
		require.Contains(t, pol.Filter.Require, "linux-x86_64/")
		require.Contains(t, pol.Filter.Require, "en-US")
		require.Contains(t, pol.Filter.Exclude, "sdk")
		require.True(t, v.ResolvesByRedirect())
	}
}

// TestSuitePolicyDeviation checks the suite's documented deviations: an MD5
// manifest, no signature, and a fixed manifest host instead of the mirror
// placeholder.
func TestSuitePolicyDeviation(t *testing.T) {
	t.Parallel()

	v := VariantFor(Suite)
	pol := v.VerifyPolicy(X86, "2.53.19")

	require.False(t, pol.RequireSignature)
	require.Equal(t, crypto.MD5, pol.Hash)
	require.Equal(t, "MD5SUMS", pol.ManifestName)
	require.Empty(t, pol.KeyIDs)
	require.NotContains(t, pol.ManifestTemplate, mirror.Placeholder)
	require.Equal(t, "https://archive.mozilla.org/pub/seamonkey/releases/2.53.19/MD5SUMS", pol.ManifestTemplate)
	require.NotEmpty(t, v.ReleasesPage())
	require.False(t, v.ResolvesByRedirect())
}

func TestListingURL(t *testing.T) {
	t.Parallel()

	v := VariantFor(MailClient)
	require.Equal(t,
		mirror.Placeholder+"thunderbird/releases/140.0.1/linux-i686/en-US/",
		v.ListingURL(X86, "140.0.1"))
}

func TestArtifactPattern(t *testing.T) {
	t.Parallel()

	v := VariantFor(Browser)
	pattern := v.ArtifactPattern()

	listing := `<a href="firefox-140.0.tar.xz">firefox-140.0.tar.xz</a>
<a href="firefox-140.0.tar.xz.asc">firefox-140.0.tar.xz.asc</a>`

	require.Equal(t, "firefox-140.0.tar.xz", pattern.FindString(listing))
	require.Equal(t, "firefox-140.0.tar.xz", pattern.FindString("firefox-140.0.tar.xz.asc"))
	require.Empty(t, pattern.FindString("firefox-sdk-readme.txt"))
}

func TestVersionEndpointArchMapping(t *testing.T) {
	t.Parallel()

	v := VariantFor(Browser)
	require.Contains(t, v.VersionEndpoint(X86), "os=linux&")
	require.Contains(t, v.VersionEndpoint(X64), "os=linux64&")
	require.Contains(t, v.VersionEndpoint(X64), "product=firefox-latest-ssl")

	esr := VariantFor(BrowserESR)
	require.Contains(t, esr.VersionEndpoint(X64), "product=firefox-esr-latest-ssl")
}
