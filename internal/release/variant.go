package release

import (
	"crypto"
	"fmt"
	"regexp"

	"github.com/mozdeb/mozdeb/internal/mirror"
	"github.com/mozdeb/mozdeb/internal/verify"
)

// mozillaReleaseKey is the fingerprint of the vendor's software releases
// signing key, which signs the SHA512SUMS manifests.
const mozillaReleaseKey = "14F26682D0916CDD81E37B6D61B7B526D98F0353"

// bouncerURL is the vendor's download redirector. Requesting a product token
// answers with a redirect whose Location names the concrete release.
const bouncerURL = "https://download.mozilla.org/"

// suiteArchiveBase hosts the suite's releases. Its server disabled directory
// browsing, so the suite variant never probes mirror listings.
const suiteArchiveBase = "https://archive.mozilla.org/pub/"

// releasesPathPattern extracts the version segment from a release URL.
var releasesPathPattern = regexp.MustCompile(`/releases/([^/]+)/`)

// suiteMarkerPattern extracts the version from the suite project homepage.
var suiteMarkerPattern = regexp.MustCompile(`seamonkey-((?:[0-9]+\.)+[0-9]+)`)

// MenuEntry carries the desktop-menu metadata for a variant. It is consumed
// only by the deb builder.
type MenuEntry struct {
	// Name is the desktop entry's display name.
	Name string
	// GenericName is the desktop entry's generic application name.
	GenericName string
	// Comment is the desktop entry's descriptive comment.
	Comment string
	// IconRelPath is the icon location relative to the unpacked
	// application directory.
	IconRelPath string
}

// Variant is the capability table for one product line, resolved once at
// startup from the selected Product. The four variants share the pipeline
// shape and differ only in the parameters collected here.
type Variant struct {
	// Product identifies the product line.
	Product Product
	// Slug is the vendor's directory and executable name. The extended
	// support browser shares the mainline browser's slug.
	Slug string
	// DisplayName is the human-readable product name.
	DisplayName string
	// PackageName is the Debian package name for the variant.
	PackageName string
	// Provides is the virtual package the built deb provides.
	Provides string
	// Menu is the desktop-menu metadata.
	Menu MenuEntry

	// bouncerProduct is the redirector token naming the latest release,
	// empty for variants that scrape a page instead.
	bouncerProduct string
	// bouncerBase is the redirector to query with bouncerProduct.
	bouncerBase string
	// versionPage is scraped for versionPattern when bouncerProduct is
	// empty.
	versionPage string
	// versionPattern extracts the version token; group 1 is the version.
	versionPattern *regexp.Regexp

	// releasesPage lists final download links for variants whose release
	// server disabled directory browsing.
	releasesPage string
	// manifestBase, when non-empty, is an absolute base URL for the
	// checksum manifest instead of the mirror placeholder.
	manifestBase string

	requireSignature bool
	hash             crypto.Hash
	manifestName     string
	keyIDs           []string
}

// VariantFor returns the capability table of the selected product line.
func VariantFor(p Product) Variant {
	switch p {
	case BrowserESR:
		return Variant{
			Product:     BrowserESR,
			Slug:        "firefox",
			DisplayName: "Firefox ESR",
			PackageName: "firefox-esr-mozilla-build",
			Provides:    "firefox",
			Menu: MenuEntry{
				Name:        "Mozilla Build of Firefox ESR",
				GenericName: "Browser",
				Comment:     "Web Browser",
				IconRelPath: "icons/mozicon50.xpm",
			},
			bouncerProduct:   "firefox-esr-latest-ssl",
			bouncerBase:      bouncerURL,
			versionPattern:   releasesPathPattern,
			requireSignature: true,
			hash:             crypto.SHA512,
			manifestName:     "SHA512SUMS",
			keyIDs:           []string{mozillaReleaseKey},
		}
	case MailClient:
		return Variant{
			Product:     MailClient,
			Slug:        "thunderbird",
			DisplayName: "Thunderbird",
			PackageName: "thunderbird-mozilla-build",
			Provides:    "thunderbird",
			Menu: MenuEntry{
				Name:        "Mozilla Build of Thunderbird",
				GenericName: "Mail Client",
				Comment:     "Read/Write Mail/News with Mozilla Thunderbird",
				IconRelPath: "icons/mozicon50.xpm",
			},
			bouncerProduct:   "thunderbird-latest-ssl",
			bouncerBase:      bouncerURL,
			versionPattern:   releasesPathPattern,
			requireSignature: true,
			hash:             crypto.SHA512,
			manifestName:     "SHA512SUMS",
			keyIDs:           []string{mozillaReleaseKey},
		}
	case Suite:
		return Variant{
			Product:     Suite,
			Slug:        "seamonkey",
			DisplayName: "Seamonkey",
			PackageName: "seamonkey-mozilla-build",
			Provides:    "seamonkey",
			Menu: MenuEntry{
				Name:        "Mozilla Build of Seamonkey",
				GenericName: "Internet Suite",
				Comment:     "Web Browser, Email/News Client, HTML Editor, IRC Client",
				IconRelPath: "chrome/icons/default/seamonkey.png",
			},
			versionPage:    "https://www.seamonkey-project.org/",
			versionPattern: suiteMarkerPattern,
			releasesPage:   "https://www.seamonkey-project.org/releases/",
			manifestBase:   suiteArchiveBase,
			// The suite's release infrastructure publishes MD5 manifests
			// and no detached signatures.
			hash:         crypto.MD5,
			manifestName: "MD5SUMS",
		}
	default:
		return Variant{
			Product:     Browser,
			Slug:        "firefox",
			DisplayName: "Firefox",
			PackageName: "firefox-mozilla-build",
			Provides:    "firefox",
			Menu: MenuEntry{
				Name:        "Mozilla Build of Firefox",
				GenericName: "Browser",
				Comment:     "Web Browser",
				IconRelPath: "icons/mozicon50.xpm",
			},
			bouncerProduct:   "firefox-latest-ssl",
			bouncerBase:      bouncerURL,
			versionPattern:   releasesPathPattern,
			requireSignature: true,
			hash:             crypto.SHA512,
			manifestName:     "SHA512SUMS",
			keyIDs:           []string{mozillaReleaseKey},
		}
	}
}

// VersionEndpoint returns the URL a version-discovery request is sent to.
func (v Variant) VersionEndpoint(arch Arch) string {
	if v.bouncerProduct == "" {
		return v.versionPage
	}

	os := "linux"
	if arch == X64 {
		os = "linux64"
	}

	return fmt.Sprintf("%s?product=%s&os=%s&lang=%s", v.bouncerBase, v.bouncerProduct, os, Locale)
}

// ResolvesByRedirect reports whether the version is read from a redirect
// Location header rather than scraped from a page body.
func (v Variant) ResolvesByRedirect() bool {
	return v.bouncerProduct != ""
}

// ListingURL returns the mirror-templated release directory holding the
// artifact for the given architecture and version.
func (v Variant) ListingURL(arch Arch, version string) string {
	return fmt.Sprintf("%s%s/releases/%s/%s/%s/",
		mirror.Placeholder, v.Slug, version, arch.PlatformDir(), Locale)
}

// ArtifactPattern matches the artifact filename in a release directory
// listing. Build identifiers vary between releases, so the pattern is not
// pinned to the version.
func (v Variant) ArtifactPattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(v.Slug) + `-[0-9][^\s"'<>]*?\.tar\.(?:gz|bz2|xz)`)
}

// LandingLinkPattern matches an absolute artifact link for the given
// architecture on the variant's releases page.
func (v Variant) LandingLinkPattern(arch Arch) *regexp.Regexp {
	return regexp.MustCompile(`https?://[^\s"'<>]*/` + arch.PlatformDir() + `/` + Locale + `/` +
		regexp.QuoteMeta(v.Slug) + `-[0-9][^\s"'<>]*?\.tar\.(?:gz|bz2|xz)`)
}

// ReleasesPage returns the page listing final download links, or "" when the
// variant's artifacts are located by probing mirror listings.
func (v Variant) ReleasesPage() string {
	return v.releasesPage
}

// ManifestTemplate returns the download location of the checksum manifest
// for the version. Most variants template it over the mirror list; the suite
// fetches from its fixed archive host.
func (v Variant) ManifestTemplate(version string) string {
	base := mirror.Placeholder
	if v.manifestBase != "" {
		base = v.manifestBase
	}

	return fmt.Sprintf("%s%s/releases/%s/%s", base, v.Slug, version, v.manifestName)
}

// VerifyPolicy returns the integrity-verification policy for one artifact of
// this variant. Every variant filters manifest lines by platform directory
// and locale and excludes signature, SDK and source entries.
func (v Variant) VerifyPolicy(arch Arch, version string) verify.Policy {
	return verify.Policy{
		ManifestName:     v.manifestName,
		ManifestTemplate: v.ManifestTemplate(version),
		RequireSignature: v.requireSignature,
		KeyIDs:           v.keyIDs,
		Hash:             v.hash,
		Filter: verify.LineFilter{
			Require: []string{arch.PlatformDir() + "/", Locale},
			Exclude: []string{".asc", "sdk", "source"},
		},
	}
}

// VersionSuffix returns the marker some channels append to version numbers.
func (v Variant) VersionSuffix() string {
	if v.Product == BrowserESR {
		return "esr"
	}

	return ""
}
