package deb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mozdeb/mozdeb/internal/execx"
	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/prompt"
)

var errNoUploadTarget = errors.New("no upload target configured")

// Publisher adds built packages to the local apt repository and synchronizes
// it to the configured upload target.
type Publisher struct {
	runner       execx.Runner
	confirm      prompt.Confirmer
	debDir       string
	repoDir      string
	uploadTarget string
}

// NewPublisher returns a Publisher operating on the repository at repoDir,
// resolved relative to debDir.
func NewPublisher(runner execx.Runner, confirm prompt.Confirmer, debDir, repoDir, uploadTarget string) *Publisher {
	return &Publisher{
		runner:       runner,
		confirm:      confirm,
		debDir:       debDir,
		repoDir:      repoDir,
		uploadTarget: uploadTarget,
	}
}

// AddToRepo indexes the built package into the apt repository for every
// distribution it serves.
func (p *Publisher) AddToRepo(ctx context.Context, debFilename, debArch string) error {
	logger.Infof(ctx, "Adding %s to the repository", debFilename)

	return p.runner.RunOrSkip(ctx, fmt.Sprintf(
		"cd %s && reprepro -S web -P extra -A %s -Vb %s includedeb all ./%s",
		p.debDir, debArch, p.repoDir, debFilename), false)
}

// Upload synchronizes the repository to the upload target after the operator
// confirms. A declined upload is not an error.
func (p *Publisher) Upload(ctx context.Context) error {
	if p.uploadTarget == "" {
		return errNoUploadTarget
	}

	ok, err := p.confirm.Confirm("Would you like to upload the repository updates to the server [y/n]?")
	if err != nil {
		return err
	}

	if !ok {
		logger.Info(ctx, "OK, exiting without uploading. If you want to upload later, run the upload action.")
		return nil
	}

	return p.runner.RunOrSkip(ctx, fmt.Sprintf(
		"cd %s && rsync -avP -e ssh %s/* %s",
		p.debDir, p.repoDir, p.uploadTarget), false)
}

// Cleanup offers to delete the package tree and the downloaded working
// files. Keeping them is not an error.
func (p *Publisher) Cleanup(ctx context.Context, buildRoot string, files []string) error {
	ok, err := p.confirm.Confirm("Would you like to KEEP the original files, and the deb structure, on your hard drive [y/n]?")
	if err != nil {
		return err
	}

	if ok {
		logger.Infof(ctx, "OK, keeping the working files. If you wish to delete them manually later, they are in %s.", buildRoot)
		return nil
	}

	if err := p.runner.RunOrSkip(ctx, "sudo rm -rf "+buildRoot, false); err != nil {
		return err
	}

	if len(files) == 0 {
		return nil
	}

	return p.runner.RunOrSkip(ctx, "rm -f "+strings.Join(files, " "), false)
}
