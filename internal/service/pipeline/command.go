package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mozdeb/mozdeb/internal/config"
	"github.com/mozdeb/mozdeb/internal/deb"
	"github.com/mozdeb/mozdeb/internal/execx"
	"github.com/mozdeb/mozdeb/internal/keyring"
	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/mirror"
	"github.com/mozdeb/mozdeb/internal/prompt"
	"github.com/mozdeb/mozdeb/internal/release"
	"github.com/mozdeb/mozdeb/internal/verify"
	"github.com/mozdeb/mozdeb/internal/version"
)

// keyDirName is the directory under the staging root holding retrieved
// public keys.
const keyDirName = "mozdeb-keys"

// Options contains inputs for the pipeline entry point.
type Options struct {
	// Config is the validated run configuration.
	Config *config.Config
	// ConfigPath is an optional path to persist settings (defaults to
	// mozdeb-settings.yaml).
	ConfigPath string
	// Action selects the stages to run.
	Action Action
}

// stageFunc is one gated stage of a run.
type stageFunc func(ctx context.Context) error

// stages holds the run's stage implementations. Tests swap them out to
// observe gating.
type stages struct {
	resolveVersion stageFunc
	confirmVersion stageFunc
	buildPackage   stageFunc
	publish        stageFunc
	upload         stageFunc
	cleanup        stageFunc
}

// pipeline drives one packaging run.
type pipeline struct {
	cfg     *config.Config
	action  Action
	variant release.Variant
	arch    release.Arch

	confirm   prompt.Confirmer
	fetcher   *mirror.Fetcher
	resolver  *release.Resolver
	locator   *release.Locator
	keys      *keyring.Store
	builder   *deb.Builder
	publisher *deb.Publisher

	stages stages

	// uid is swappable so the root warning can be tested.
	uid func() int

	// version is set by the resolve stage and read-only afterwards.
	version string
}

// Run executes the packaging workflow for the requested action.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mozdeb")

	if err := config.Validate(opts.Config); err != nil {
		return err
	}

	p, err := newPipeline(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	return p.run(ctx)
}

// newPipeline resolves the variant, persists the settings and wires the
// collaborators.
func newPipeline(_ context.Context, opts *Options) (*pipeline, error) {
	cfg := opts.Config

	product, err := release.ParseProduct(cfg.Product)
	if err != nil {
		return nil, err
	}

	arch, err := release.ParseArch(cfg.Architecture)
	if err != nil {
		return nil, err
	}

	if !cfg.DryRun {
		if err := config.Save(opts.ConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
	}

	var confirm prompt.Confirmer = prompt.NewTerminal(nil, nil)
	if cfg.Unattended {
		confirm = prompt.Unattended{}
	}

	runner := execx.NewShellRunner(cfg.DryRun)
	fetcher := mirror.NewFetcher(runner, cfg.Mirrors)

	p := &pipeline{
		cfg:       cfg,
		action:    opts.Action,
		variant:   release.VariantFor(product),
		arch:      arch,
		confirm:   confirm,
		fetcher:   fetcher,
		resolver:  release.NewResolver(confirm),
		locator:   release.NewLocator(fetcher),
		keys:      keyring.NewStore(filepath.Join(cfg.StagingDir, keyDirName), cfg.Keyservers),
		builder:   deb.NewBuilder(runner, cfg.StagingDir, cfg.TargetDir, cfg.DebDir, cfg.DryRun),
		publisher: deb.NewPublisher(runner, confirm, cfg.DebDir, cfg.RepoDir, cfg.UploadTarget),
		uid:       os.Getuid,
	}

	p.stages = stages{
		resolveVersion: p.resolveVersion,
		confirmVersion: p.confirmVersion,
		buildPackage:   p.buildPackage,
		publish:        p.publish,
		upload:         p.upload,
		cleanup:        p.cleanup,
	}

	return p, nil
}

// run executes the gated stages in order. Each stage runs to completion or
// the whole run terminates; retries live inside the fetcher and key store.
func (p *pipeline) run(ctx context.Context) error {
	p.welcome(ctx)

	if err := p.warnIfRoot(ctx); err != nil {
		return err
	}

	if p.action.mutating() {
		releaseMarker, err := acquireRunMarker(ctx, p.cfg.StagingDir)
		if err != nil {
			return err
		}
		defer releaseMarker()
	}

	if err := p.stages.resolveVersion(ctx); err != nil {
		return err
	}

	g := gatesFor(p.action)

	if g.confirmVersion {
		if err := p.stages.confirmVersion(ctx); err != nil {
			return err
		}
	}

	if g.buildPackage {
		if err := p.stages.buildPackage(ctx); err != nil {
			return err
		}
	}

	if g.publish {
		if err := p.stages.publish(ctx); err != nil {
			return err
		}
	}

	if g.upload {
		if err := p.stages.upload(ctx); err != nil {
			return err
		}
	}

	if g.cleanup {
		if err := p.stages.cleanup(ctx); err != nil {
			return err
		}
	}

	return nil
}

// welcome announces the run and the support channel.
func (p *pipeline) welcome(ctx context.Context) {
	logger.Infof(ctx,
		"Welcome to mozdeb %s. mozdeb creates a .deb out of the latest official release of %s. "+
			"If you run into any problems, have feature requests or general comments, please visit %s",
		version.Short(), p.variant.DisplayName, version.ProjectURL)
}

// warnIfRoot offers to quit when the tool runs as root. Packages are built
// as a regular user; sudo is invoked where needed.
func (p *pipeline) warnIfRoot(ctx context.Context) error {
	if p.uid() != 0 {
		return nil
	}

	logger.Warn(ctx, "You appear to be running mozdeb as root. That is not necessary: run it as a regular user, and sudo will be invoked where needed.")

	ok, err := p.confirm.Confirm("Would you like to quit now and restart as a regular user [y/n]?")
	if err != nil {
		return err
	}

	if ok {
		logger.Info(ctx, "Please run mozdeb again as a regular user.")
		return prompt.ErrAborted
	}

	logger.Info(ctx, "Continuing as root.")

	return nil
}

// resolveVersion discovers the current upstream version. It runs for every
// action.
func (p *pipeline) resolveVersion(ctx context.Context) error {
	resolved, err := p.resolver.Discover(ctx, p.variant, p.arch)
	if err != nil {
		return err
	}

	p.version = resolved

	return nil
}

// confirmVersion lets the operator accept or override the discovered
// version. Downstream stages only ever see the confirmed value.
func (p *pipeline) confirmVersion(ctx context.Context) error {
	confirmed, err := p.resolver.Confirm(ctx, p.variant, p.version)
	if err != nil {
		return err
	}

	p.version = confirmed

	return nil
}

// buildPackage locates, downloads and verifies the artifact, then stages and
// builds the deb.
func (p *pipeline) buildPackage(ctx context.Context) error {
	artifact, err := p.locator.Locate(ctx, p.variant, p.arch, p.version)
	if err != nil {
		return err
	}

	artifactPath := filepath.Join(p.cfg.StagingDir, artifact.Filename)

	logger.Infof(ctx, "Downloading %s archive", p.variant.DisplayName)

	if err := p.fetcher.Fetch(ctx, verify.DownloadCommand(artifactPath, artifact.Source)); err != nil {
		return err
	}

	policy := p.variant.VerifyPolicy(p.arch, p.version)
	if p.cfg.SkipSignature {
		policy.RequireSignature = false
	}

	verifier := verify.NewVerifier(p.fetcher, p.keys, p.confirm, p.cfg.StagingDir)
	if _, err := verifier.Verify(ctx, artifact.Filename, policy); err != nil {
		return err
	}

	if err := p.builder.CreateStructure(ctx, p.variant, p.arch, p.version); err != nil {
		return err
	}

	if err := p.builder.ExtractArchive(ctx, p.variant, artifactPath); err != nil {
		return err
	}

	if err := p.builder.CreateSymlinks(ctx, p.variant); err != nil {
		return err
	}

	if err := p.builder.CreateMenuEntry(ctx, p.variant); err != nil {
		return err
	}

	if err := p.builder.BuildPackage(ctx, p.variant); err != nil {
		return err
	}

	logger.Infof(ctx, "The new %s version %s has been packaged successfully.", p.variant.DisplayName, p.version)

	if p.variant.Product == release.Suite {
		logger.Info(ctx, "If you are looking to use Seamonkey in multiple languages, head over to https://www.seamonkey-project.org/releases/#langpacks and download the installable language pack of your choice.")
	}

	return nil
}

// publish indexes the built package into the apt repository.
func (p *pipeline) publish(ctx context.Context) error {
	return p.publisher.AddToRepo(ctx,
		p.builder.DebFilename(p.variant, p.arch, p.version), p.arch.DebArch())
}

// upload synchronizes the apt repository to the configured target.
func (p *pipeline) upload(ctx context.Context) error {
	return p.publisher.Upload(ctx)
}

// cleanup offers to delete the build tree and the downloaded working files.
// The files are matched by pattern so cleanup works without re-locating the
// artifact.
func (p *pipeline) cleanup(ctx context.Context) error {
	policy := p.variant.VerifyPolicy(p.arch, p.version)

	files := []string{
		filepath.Join(p.cfg.StagingDir, p.variant.Slug+"-*.tar.*"),
		filepath.Join(p.cfg.StagingDir, policy.ManifestName+"*"),
	}

	return p.publisher.Cleanup(ctx, p.builder.BuildRoot(p.variant), files)
}
