package verify

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/prompt"

	// Ensure digest algorithms are linked in for crypto.Hash.New.
	_ "crypto/md5"
	_ "crypto/sha512"
)

// Outcome is the result of verifying one artifact.
type Outcome int

const (
	// Indeterminate means verification never reached a verdict; the
	// accompanying error carries the cause. It is the zero value, so an
	// error path can never read as Verified.
	Indeterminate Outcome = iota
	// Verified means the signature (when required) and the digest both check out.
	Verified
	// SignatureFailed means the manifest's detached signature did not verify.
	SignatureFailed
	// ChecksumMismatch means the artifact digest differs from the manifest's record.
	ChecksumMismatch
)

// String renders the outcome for logs and errors.
func (o Outcome) String() string {
	switch o {
	case Indeterminate:
		return "indeterminate"
	case Verified:
		return "verified"
	case SignatureFailed:
		return "signature verification failed"
	case ChecksumMismatch:
		return "checksum mismatch"
	default:
		return fmt.Sprintf("unknown outcome %d", int(o))
	}
}

// VerificationError reports a non-verified outcome.
type VerificationError struct {
	// Outcome is the specific failure.
	Outcome Outcome
	// Filename is the artifact that failed verification.
	Filename string
}

// Error renders the failed artifact and outcome.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Outcome)
}

var (
	// errHashUnavailable is returned when the digest algorithm is not linked in.
	errHashUnavailable = errors.New("hash function unavailable")

	// errBadSignature marks a signature that was checked and did not verify,
	// as opposed to a failure acquiring the signature or the keys.
	errBadSignature = errors.New("signature does not verify")
)

// Policy carries the per-product verification parameters.
type Policy struct {
	// ManifestName is the local filename of the checksum manifest.
	ManifestName string
	// ManifestTemplate is the manifest's URL, with the mirror placeholder
	// for mirrored products or absolute for fixed-host products.
	ManifestTemplate string
	// RequireSignature enables detached-signature verification of the manifest.
	RequireSignature bool
	// KeyIDs are the signing keys the manifest signature must chain to.
	KeyIDs []string
	// Hash is the digest algorithm the manifest records.
	Hash crypto.Hash
	// Filter narrows the manifest to the packaged binary's line.
	Filter LineFilter
}

// Fetcher downloads one resource described by a command template.
type Fetcher interface {
	Fetch(ctx context.Context, template string) error
}

// KeyProvider supplies verification keys.
type KeyProvider interface {
	EnsureKeys(ctx context.Context, ids []string) error
	Keyring() (openpgp.EntityList, error)
}

// Verifier checks downloaded artifacts against vendor checksum manifests.
type Verifier struct {
	fetcher Fetcher
	keys    KeyProvider
	confirm prompt.Confirmer
	// dir is the staging directory holding the artifact and manifests.
	dir string
}

// NewVerifier returns a Verifier over the given staging directory.
func NewVerifier(fetcher Fetcher, keys KeyProvider, confirm prompt.Confirmer, dir string) *Verifier {
	return &Verifier{
		fetcher: fetcher,
		keys:    keys,
		confirm: confirm,
		dir:     dir,
	}
}

// Verify downloads the checksum manifest (and its signature when the policy
// requires one), checks the signature, and compares the artifact's digest
// against the manifest's record. SignatureFailed and ChecksumMismatch
// outcomes offer interactive deletion of the suspect files and surface a
// *VerificationError. Failures before a verdict — download errors, key
// acquisition, unreadable files — propagate unchanged with Indeterminate, so
// callers can still pick out the underlying typed error.
func (v *Verifier) Verify(ctx context.Context, filename string, pol Policy) (Outcome, error) {
	manifestPath := filepath.Join(v.dir, pol.ManifestName)
	sigPath := manifestPath + ".asc"
	artifactPath := filepath.Join(v.dir, filename)

	logger.Infof(ctx, "Downloading checksum manifest %s", pol.ManifestName)

	if err := v.fetcher.Fetch(ctx, DownloadCommand(manifestPath, pol.ManifestTemplate)); err != nil {
		return Indeterminate, fmt.Errorf("download checksum manifest: %w", err)
	}

	if pol.RequireSignature {
		if err := v.checkSignature(ctx, manifestPath, sigPath, pol); err != nil {
			if !errors.Is(err, errBadSignature) {
				return Indeterminate, err
			}

			logger.Error(ctx, "Signature verification failed. This is most likely due to a corrupt download.")
			v.offerCleanup(ctx, artifactPath, manifestPath, sigPath)

			return SignatureFailed, &VerificationError{Outcome: SignatureFailed, Filename: filename}
		}

		logger.Info(ctx, "Manifest signature verified")
	}

	expected, digestPath, err := v.extractDigest(manifestPath, filename, pol)
	if err != nil {
		return Indeterminate, err
	}

	actual, err := hashFile(artifactPath, pol.Hash)
	if err != nil {
		return Indeterminate, err
	}

	if !strings.EqualFold(expected, actual) {
		logger.Errorf(ctx, "Checksum mismatch for %s: manifest records %s, computed %s.", filename, expected, actual)
		v.offerCleanup(ctx, artifactPath, manifestPath, sigPath, digestPath)

		return ChecksumMismatch, &VerificationError{Outcome: ChecksumMismatch, Filename: filename}
	}

	logger.Infof(ctx, "Checksum verified for %s", filename)

	return Verified, nil
}

// DownloadCommand builds the wget invocation used for manifest and artifact
// downloads. The URL may contain the mirror placeholder.
func DownloadCommand(destination, url string) string {
	return fmt.Sprintf("wget -c --tries=5 --read-timeout=20 --waitretry=10 -q -O %s %s", destination, url)
}

// checkSignature verifies the manifest's detached signature against the key
// store. Armored signatures are tried first, binary second. A checked
// signature that does not verify is reported through errBadSignature; every
// other failure keeps its own type.
func (v *Verifier) checkSignature(ctx context.Context, manifestPath, sigPath string, pol Policy) error {
	if err := v.fetcher.Fetch(ctx, DownloadCommand(sigPath, pol.ManifestTemplate+".asc")); err != nil {
		return fmt.Errorf("download manifest signature: %w", err)
	}

	if err := v.keys.EnsureKeys(ctx, pol.KeyIDs); err != nil {
		return err
	}

	keyring, err := v.keys.Keyring()
	if err != nil {
		return err
	}

	manifest, err := os.Open(filepath.Clean(manifestPath))
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer manifest.Close() //nolint:errcheck // Read-only file.

	sig, err := os.Open(filepath.Clean(sigPath))
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close() //nolint:errcheck // Read-only file.

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, manifest, sig, nil)
	if err != nil {
		if _, seekErr := manifest.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind manifest: %w", seekErr)
		}

		if _, seekErr := sig.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind signature: %w", seekErr)
		}

		_, err = openpgp.CheckDetachedSignature(keyring, manifest, sig, nil)
	}

	if err != nil {
		return fmt.Errorf("%w: %v", errBadSignature, err)
	}

	return nil
}

// extractDigest selects the artifact's manifest line, persists it with the
// recorded path rewritten to the local filename, and returns the digest and
// the persisted file's path.
func (v *Verifier) extractDigest(manifestPath, filename string, pol Policy) (string, string, error) {
	manifest, err := os.ReadFile(filepath.Clean(manifestPath))
	if err != nil {
		return "", "", fmt.Errorf("read manifest: %w", err)
	}

	line, err := SelectLine(manifest, filename, pol.Filter)
	if err != nil {
		return "", "", err
	}

	rewritten := RewriteLine(line, filename)

	digestPath := filepath.Join(v.dir, filename+"."+hashExtension(pol.Hash))
	if err := os.WriteFile(digestPath, []byte(rewritten+"\n"), 0o644); err != nil {
		return "", "", fmt.Errorf("persist digest line: %w", err)
	}

	digest, ok := DigestFromLine(rewritten)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", errNoMatchingLine, line)
	}

	return digest, digestPath, nil
}

// offerCleanup asks the operator whether the suspect files should be
// deleted. The run terminates either way; declining only keeps the files
// around for inspection.
func (v *Verifier) offerCleanup(ctx context.Context, paths ...string) {
	ok, err := v.confirm.Confirm("You should delete the downloaded files and run the tool again. Delete them now?")
	if err != nil || !ok {
		logger.Info(ctx, "OK, exiting without deleting files.")
		return
	}

	for _, path := range paths {
		if path == "" {
			continue
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf(ctx, "Could not delete %s: %v", path, err)
		}
	}

	logger.Info(ctx, "OK, deleted the downloaded files.")
}

// hashFile computes the file's digest with the policy's algorithm.
func hashFile(path string, h crypto.Hash) (string, error) {
	if !h.Available() {
		return "", fmt.Errorf("compute digest: %w", errHashUnavailable)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	hasher := h.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("compute digest: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// hashExtension names the persisted digest file's suffix for the algorithm.
func hashExtension(h crypto.Hash) string {
	switch h {
	case crypto.MD5:
		return "md5"
	case crypto.SHA512:
		return "sha512"
	default:
		return "sum"
	}
}
