package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the parameters for one packaging run.
type Config struct {
	// Product is the product line to package (firefox, firefox-esr, thunderbird, seamonkey).
	Product string `yaml:"product"`
	// Architecture is the target architecture (x86 or x64).
	Architecture string `yaml:"architecture"`
	// Mirrors is the ordered list of release mirror base locations.
	// Iteration order is the fallback order; the first success wins.
	Mirrors []string `yaml:"mirrors"`
	// Keyservers is the ordered list of PGP keyserver hostnames.
	Keyservers []string `yaml:"keyservers"`
	// StagingDir is the temporary root where downloads and the deb tree are assembled.
	StagingDir string `yaml:"staging_dir"`
	// TargetDir is the installation prefix the package will unpack into.
	TargetDir string `yaml:"target_dir"`
	// DebDir is where the completed .deb file is placed.
	DebDir string `yaml:"deb_dir"`
	// RepoDir is the apt repository directory used by the publish stage.
	RepoDir string `yaml:"repo_dir"`
	// UploadTarget is the rsync destination for the upload stage.
	UploadTarget string `yaml:"upload_target"`
	// SkipSignature disables detached-signature verification. Not persisted.
	SkipSignature bool `yaml:"-"`
	// Unattended suppresses all interactive prompts, auto-answering yes. Not persisted.
	Unattended bool `yaml:"-"`
	// DryRun suppresses mutating external commands. Not persisted.
	DryRun bool `yaml:"-"`
}

const (
	// DefaultConfigFilename is the default filename for persisted settings.
	DefaultConfigFilename = "mozdeb-settings.yaml"

	// DefaultStagingDir is the default temporary root for downloads and staging.
	DefaultStagingDir = "/tmp"

	// DefaultTargetDir is the default installation prefix.
	DefaultTargetDir = "/opt"

	// DefaultRepoDir is the default apt repository directory, relative to DebDir.
	DefaultRepoDir = "../mozilla-apt-repository"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errProductRequired is returned when no product is selected.
	errProductRequired = errors.New("product must be provided")
	// errArchitectureRequired is returned when no architecture is selected.
	errArchitectureRequired = errors.New("architecture must be provided")
	// errNoMirrors is returned when the mirror list is empty.
	errNoMirrors = errors.New("at least one mirror must be configured")
	// errNoKeyservers is returned when the keyserver list is empty.
	errNoKeyservers = errors.New("at least one keyserver must be configured")
)

// DefaultMirrors returns the built-in release mirror list, priority order.
func DefaultMirrors() []string {
	return []string{
		"https://download-installer.cdn.mozilla.net/pub/",
		"https://ftp.mozilla.org/pub/",
		"https://releases.mozilla.org/pub/",
		"https://archive.mozilla.org/pub/",
	}
}

// DefaultKeyservers returns the built-in PGP keyserver list, priority order.
func DefaultKeyservers() []string {
	return []string{
		"keys.openpgp.org",
		"keyserver.ubuntu.com",
		"pgp.mit.edu",
	}
}

// Default returns a configuration populated with built-in defaults.
// DebDir defaults to the current working directory.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Product:      "firefox",
		Architecture: "x64",
		Mirrors:      DefaultMirrors(),
		Keyservers:   DefaultKeyservers(),
		StagingDir:   DefaultStagingDir,
		TargetDir:    DefaultTargetDir,
		DebDir:       cwd,
		RepoDir:      DefaultRepoDir,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided configuration for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Product == "" {
		return errProductRequired
	}

	if cfg.Architecture == "" {
		return errArchitectureRequired
	}

	if len(cfg.Mirrors) == 0 {
		return errNoMirrors
	}

	if len(cfg.Keyservers) == 0 {
		return errNoKeyservers
	}

	if cfg.StagingDir == "" {
		cfg.StagingDir = DefaultStagingDir
	}

	if cfg.TargetDir == "" {
		cfg.TargetDir = DefaultTargetDir
	}

	if cfg.RepoDir == "" {
		cfg.RepoDir = DefaultRepoDir
	}

	if cfg.UploadTarget == "" {
		return nil
	}

	// rsync targets may be host:path or a URI; only URIs are checked here.
	if _, err := url.ParseRequestURI(cfg.UploadTarget); err != nil && !isRsyncTarget(cfg.UploadTarget) {
		return fmt.Errorf("invalid upload target: %w", err)
	}

	return nil
}

// PrependMirrors inserts operator-supplied mirrors at the head of the list,
// preserving their given order.
func (c *Config) PrependMirrors(entries []string) {
	if len(entries) == 0 {
		return
	}

	c.Mirrors = append(append([]string(nil), entries...), c.Mirrors...)
}

// PrependKeyservers inserts operator-supplied keyservers at the head of the list.
func (c *Config) PrependKeyservers(entries []string) {
	if len(entries) == 0 {
		return
	}

	c.Keyservers = append(append([]string(nil), entries...), c.Keyservers...)
}

// isRsyncTarget reports whether s looks like an scp-style rsync destination (host:path).
func isRsyncTarget(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return i > 0 && i+1 < len(s)
		}

		if s[i] == '/' {
			return false
		}
	}

	return false
}
