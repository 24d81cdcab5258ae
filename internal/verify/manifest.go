package verify

import (
	"errors"
	"fmt"
	"strings"
)

// LineFilter selects manifest lines by recorded-path substrings. The vendor
// manifest covers every platform, locale, and auxiliary artifact of a
// release; the filter narrows it to the one binary being packaged. Making
// the filter an explicit per-product value keeps each product line's
// matching rules visible instead of buried in string munging.
type LineFilter struct {
	// Require lists substrings the recorded path must contain.
	Require []string
	// Exclude lists substrings that disqualify a line.
	Exclude []string
}

// errNoMatchingLine is returned when no manifest line survives the filter.
var errNoMatchingLine = errors.New("no manifest line matches the artifact")

// SelectLine returns the manifest line whose recorded filename is exactly
// the artifact filename and whose path passes the filter.
func SelectLine(manifest []byte, filename string, filter LineFilter) (string, error) {
	for _, line := range strings.Split(string(manifest), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		_, path, ok := splitLine(line)
		if !ok {
			continue
		}

		if baseName(path) != filename {
			continue
		}

		if !filter.matches(path) {
			continue
		}

		return line, nil
	}

	return "", fmt.Errorf("%w: %s", errNoMatchingLine, filename)
}

// RewriteLine replaces the recorded path with the bare local filename so a
// standard digest tool can verify the file in place. Rewriting a line whose
// path is already the local filename yields the line unchanged.
func RewriteLine(line, filename string) string {
	digest, _, ok := splitLine(strings.TrimSpace(line))
	if !ok {
		return line
	}

	return digest + "  " + filename
}

// DigestFromLine extracts the recorded digest from a manifest line.
func DigestFromLine(line string) (string, bool) {
	digest, _, ok := splitLine(strings.TrimSpace(line))
	return digest, ok
}

// matches reports whether a recorded path passes the filter.
func (f LineFilter) matches(path string) bool {
	for _, want := range f.Require {
		if !strings.Contains(path, want) {
			return false
		}
	}

	for _, bad := range f.Exclude {
		if strings.Contains(path, bad) {
			return false
		}
	}

	return true
}

// splitLine parses "digest  path" manifest lines. The path may contain
// spaces; an optional leading '*' (binary-mode marker) is stripped.
func splitLine(line string) (digest, path string, ok bool) {
	i := strings.IndexAny(line, " \t")
	if i <= 0 {
		return "", "", false
	}

	digest = line[:i]

	path = strings.TrimLeft(line[i:], " \t")
	path = strings.TrimPrefix(path, "*")

	if path == "" {
		return "", "", false
	}

	return digest, path, true
}

// baseName returns the final element of a recorded manifest path. Manifest
// paths always use forward slashes regardless of platform.
func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}

	return path
}
