package keyring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/mozdeb/mozdeb/internal/logger"
)

const (
	// acquisitionRounds is how many times the full keyserver list is retried.
	acquisitionRounds = 5

	// retryPause is the fixed pause between keyserver attempts.
	retryPause = 2 * time.Second

	// requestTimeout bounds a single keyserver request.
	requestTimeout = 30 * time.Second

	// maxKeySize caps a keyserver response; public keys are a few KB.
	maxKeySize = 1 << 20

	// keyFilePermissions restricts stored key files.
	keyFilePermissions = 0o600
)

// errFingerprintMismatch is returned when a keyserver hands back a key whose
// fingerprint does not match the requested id.
var errFingerprintMismatch = errors.New("key fingerprint does not match requested id")

// AcquisitionError reports that a key set could not be acquired from any
// keyserver within the allotted rounds.
type AcquisitionError struct {
	// KeyIDs are the ids that are still missing.
	KeyIDs []string
	// Servers is the number of keyservers tried per round.
	Servers int
	// Rounds is the number of full-list rounds attempted.
	Rounds int
}

// Error renders the missing keys and the search effort expended.
func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire keys %v from %d keyservers after %d rounds",
		e.KeyIDs, e.Servers, e.Rounds)
}

// Store keeps armored public keys in a local directory and imports missing
// ones from keyservers.
type Store struct {
	dir     string
	servers []string
	client  *http.Client
	rounds  int
	// sleep is replaceable so tests can observe pauses without waiting.
	sleep func(time.Duration)
}

// NewStore returns a Store rooted at dir over the given keyserver list.
// Server entries are hostnames; a scheme may be included for testing.
func NewStore(dir string, servers []string) *Store {
	return &Store{
		dir:     dir,
		servers: servers,
		client:  &http.Client{Timeout: requestTimeout},
		rounds:  acquisitionRounds,
		sleep:   time.Sleep,
	}
}

// EnsureKeys makes sure every key id is present locally, importing missing
// ones from the keyserver list. The full list is retried up to five rounds
// with a fixed pause between attempts; the first server that yields the
// whole remaining set ends the search.
func (s *Store) EnsureKeys(ctx context.Context, ids []string) error {
	missing := s.missingKeys(ids)
	if len(missing) == 0 {
		logger.Debug(ctx, "All required keys are already present locally")
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}

	logger.Infof(ctx, "Importing %d missing public key(s) from keyservers", len(missing))

	for round := 0; round < s.rounds; round++ {
		for _, server := range s.servers {
			remaining := missing[:0:0]

			for _, id := range missing {
				if err := s.fetchKey(ctx, server, id); err != nil {
					logger.Warnf(ctx, "Unable to retrieve key %s from %s: %v. Trying again...", id, server, err)
					remaining = append(remaining, id)
				} else {
					logger.Infof(ctx, "Successfully retrieved key %s from %s", id, server)
				}
			}

			missing = remaining
			if len(missing) == 0 {
				return nil
			}

			s.sleep(retryPause)
		}
	}

	return &AcquisitionError{KeyIDs: missing, Servers: len(s.servers), Rounds: s.rounds}
}

// Keyring loads every stored key into an entity list for verification.
func (s *Store) Keyring() (openpgp.EntityList, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.asc"))
	if err != nil {
		return nil, fmt.Errorf("list key files: %w", err)
	}

	var keyring openpgp.EntityList

	for _, path := range paths {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}

		entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse key file %s: %w", filepath.Base(path), err)
		}

		keyring = append(keyring, entities...)
	}

	return keyring, nil
}

// missingKeys returns the ids without a readable local key file.
func (s *Store) missingKeys(ids []string) []string {
	var missing []string

	for _, id := range ids {
		if !s.hasKey(id) {
			missing = append(missing, id)
		}
	}

	return missing
}

// hasKey reports whether a parseable key file with a matching fingerprint exists.
func (s *Store) hasKey(id string) bool {
	data, err := os.ReadFile(filepath.Clean(s.keyPath(id)))
	if err != nil {
		return false
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil || len(entities) == 0 {
		return false
	}

	return matchesFingerprint(entities, id)
}

// fetchKey downloads one key from one keyserver, trying the modern
// by-fingerprint endpoint first and the classic HKP lookup second.
func (s *Store) fetchKey(ctx context.Context, server, id string) error {
	base := server
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	urls := []string{
		fmt.Sprintf("%s/vks/v1/by-fingerprint/%s", base, strings.ToUpper(id)),
		fmt.Sprintf("%s/pks/lookup?op=get&options=mr&search=0x%s", base, id),
	}

	var lastErr error

	for _, u := range urls {
		data, err := s.download(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}

		entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
		if err != nil {
			lastErr = fmt.Errorf("parse keyserver response: %w", err)
			continue
		}

		if !matchesFingerprint(entities, id) {
			lastErr = errFingerprintMismatch
			continue
		}

		if err := os.WriteFile(s.keyPath(id), data, keyFilePermissions); err != nil {
			return fmt.Errorf("store key: %w", err)
		}

		return nil
	}

	return lastErr
}

// download fetches a URL body, bounded by maxKeySize.
func (s *Store) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query keyserver: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing to do about a close failure here.

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keyserver returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySize))
	if err != nil {
		return nil, fmt.Errorf("read keyserver response: %w", err)
	}

	return data, nil
}

// keyPath returns the storage path for a key id.
func (s *Store) keyPath(id string) string {
	return filepath.Join(s.dir, strings.ToUpper(id)+".asc")
}

// matchesFingerprint reports whether any entity's primary-key fingerprint
// equals the requested id or ends with it (short-id form).
func matchesFingerprint(entities openpgp.EntityList, id string) bool {
	want := strings.ToUpper(id)

	for _, entity := range entities {
		fingerprint := fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
		if fingerprint == want || strings.HasSuffix(fingerprint, want) {
			return true
		}
	}

	return false
}
