package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mozdeb/mozdeb/internal/config"
	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/prompt"
	"github.com/mozdeb/mozdeb/internal/service/pipeline"
	"github.com/mozdeb/mozdeb/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel for the run (debug, info, warn, error).
	logLevel string

	// Flag overrides applied on top of the loaded settings.
	productName        string
	archName           string
	mirrorOverrides    []string
	keyserverOverrides []string
	stagingDir         string
	targetDir          string
	debDir             string
	repoDir            string
	uploadTarget       string
	skipSignature      bool
	unattended         bool
	dryRun             bool

	// rootCmd represents the base command; the action subcommands do the work.
	rootCmd = &cobra.Command{
		Use:   "mozdeb",
		Short: "Package official Mozilla builds as Debian packages",
		Long: `mozdeb turns the latest official release of Firefox, Firefox ESR,
Thunderbird or Seamonkey into an installable .deb without rebuilding it from
source. It resolves the current version, downloads the release from a list of
mirrors, verifies the checksum manifest and its signature, stages the archive
into a Debian package tree and invokes dpkg-deb. The finished package can be
indexed into an apt repository and uploaded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the mozdeb CLI. A user-initiated abort exits cleanly; every
// other error exits with a non-zero status and points at the support channel.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(os.Stdout, "Quitting by user request...")
			return
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "If the problem persists, please seek help at %s\n", version.ProjectURL)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVarP(&productName, "product", "p", "", "product to package (firefox, firefox-esr, thunderbird, seamonkey)")
	flags.StringVarP(&archName, "arch", "a", "", "target architecture (x86 or x64)")
	flags.StringArrayVarP(&mirrorOverrides, "mirror", "m", nil, "mirror base URL to try first (repeatable)")
	flags.StringArrayVarP(&keyserverOverrides, "keyserver", "k", nil, "keyserver to try first (repeatable)")
	flags.StringVar(&stagingDir, "staging-dir", "", "staging directory for downloads and the package tree")
	flags.StringVar(&targetDir, "target-dir", "", "installation prefix the package unpacks into")
	flags.StringVar(&debDir, "deb-dir", "", "directory the finished .deb is placed in")
	flags.StringVar(&repoDir, "repo-dir", "", "apt repository directory, relative to the deb directory")
	flags.StringVar(&uploadTarget, "upload-target", "", "rsync destination for the upload action")
	flags.BoolVar(&skipSignature, "skip-signature", false, "skip detached-signature verification")
	flags.BoolVarP(&unattended, "unattended", "u", false, "suppress prompts, auto-answering yes")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "log mutating commands instead of running them")

	for _, sub := range []struct {
		use    string
		short  string
		action pipeline.Action
	}{
		{"get-version", "Resolve and print the current release version", pipeline.GetVersionOnly},
		{"build", "Download, verify and build the package", pipeline.Build},
		{"add-to-repo", "Index the built package into the apt repository", pipeline.AddToRepo},
		{"upload", "Upload the apt repository to the configured target", pipeline.Upload},
		{"cleanup", "Delete the working files of an earlier run", pipeline.Cleanup},
		{"all", "Run every stage: build, publish, upload, cleanup", pipeline.All},
	} {
		rootCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE:  runAction(sub.action),
		})
	}
}

// runAction builds the RunE handler for one action subcommand.
func runAction(action pipeline.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		level, ok := logger.ParseLogLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", logLevel)
		}

		logger.SetLevel(level)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return pipeline.Run(ctx, &pipeline.Options{
			Config:     cfg,
			ConfigPath: configPath,
			Action:     action,
		})
	}
}

// loadConfig reads the settings file when present, falls back to defaults,
// and layers the command-line overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("product") {
		cfg.Product = productName
	}

	if flags.Changed("arch") {
		cfg.Architecture = archName
	}

	if flags.Changed("staging-dir") {
		cfg.StagingDir = stagingDir
	}

	if flags.Changed("target-dir") {
		cfg.TargetDir = targetDir
	}

	if flags.Changed("deb-dir") {
		cfg.DebDir = debDir
	}

	if flags.Changed("repo-dir") {
		cfg.RepoDir = repoDir
	}

	if flags.Changed("upload-target") {
		cfg.UploadTarget = uploadTarget
	}

	cfg.PrependMirrors(mirrorOverrides)
	cfg.PrependKeyservers(keyserverOverrides)

	cfg.SkipSignature = skipSignature
	cfg.Unattended = unattended
	cfg.DryRun = dryRun

	return cfg, nil
}
