package keyring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testFingerprint matches testdata/pubkey.asc.
const testFingerprint = "7F885B30D089AF974C8B17AA72F3A837426BCC70"

// newQuietStore returns a store with pauses recorded instead of slept.
func newQuietStore(t *testing.T, servers []string) (*Store, *[]time.Duration) {
	t.Helper()

	s := NewStore(t.TempDir(), servers)

	var pauses []time.Duration

	s.sleep = func(d time.Duration) { pauses = append(pauses, d) }

	return s, &pauses
}

// serveKey returns a test keyserver serving the given key file on every lookup.
func serveKey(t *testing.T, keyFile string, hits *int) *httptest.Server {
	t.Helper()

	key, err := os.ReadFile(filepath.Join("testdata", keyFile))
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			*hits++
		}

		_, _ = w.Write(key)
	}))
}

// TestEnsureKeysFallsBackToNextServer verifies the second keyserver is used
// after the first fails, with one pause in between.
func TestEnsureKeysFallsBackToNextServer(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := serveKey(t, "pubkey.asc", nil)
	defer good.Close()

	s, pauses := newQuietStore(t, []string{bad.URL, good.URL})

	err := s.EnsureKeys(context.Background(), []string{testFingerprint})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{2 * time.Second}, *pauses)

	keyring, err := s.Keyring()
	require.NoError(t, err)
	require.Len(t, keyring, 1)
}

// TestEnsureKeysShortCircuitsWhenPresent ensures no keyserver traffic when
// the key is already stored locally.
func TestEnsureKeysShortCircuitsWhenPresent(t *testing.T) {
	t.Parallel()

	hits := 0

	server := serveKey(t, "pubkey.asc", &hits)
	defer server.Close()

	s, _ := newQuietStore(t, []string{server.URL})

	require.NoError(t, s.EnsureKeys(context.Background(), []string{testFingerprint}))

	after := hits

	require.NoError(t, s.EnsureKeys(context.Background(), []string{testFingerprint}))
	require.Equal(t, after, hits)
}

// TestEnsureKeysRejectsWrongFingerprint ensures a keyserver answering with
// the wrong key never satisfies the request.
func TestEnsureKeysRejectsWrongFingerprint(t *testing.T) {
	t.Parallel()

	server := serveKey(t, "otherkey.asc", nil)
	defer server.Close()

	s, pauses := newQuietStore(t, []string{server.URL})
	s.rounds = 2

	err := s.EnsureKeys(context.Background(), []string{testFingerprint})
	require.Error(t, err)

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	require.Equal(t, []string{testFingerprint}, acqErr.KeyIDs)
	require.Equal(t, 2, acqErr.Rounds)

	// One pause per failed server attempt per round.
	require.Len(t, *pauses, 2)

	// Nothing was stored.
	keyring, err := s.Keyring()
	require.NoError(t, err)
	require.Empty(t, keyring)
}

// TestKeyringEmptyStore returns an empty list without error.
func TestKeyringEmptyStore(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)

	keyring, err := s.Keyring()
	require.NoError(t, err)
	require.Empty(t, keyring)
}
