package deb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/mozdeb/mozdeb/internal/execx"
	"github.com/mozdeb/mozdeb/internal/logger"
	"github.com/mozdeb/mozdeb/internal/release"
	"github.com/mozdeb/mozdeb/internal/version"
)

var errUnknownArchiveFormat = errors.New("unknown archive format")

// Builder assembles the Debian package tree for one variant and invokes
// dpkg-deb on it.
type Builder struct {
	runner     execx.Runner
	stagingDir string
	targetDir  string
	debDir     string
	dryRun     bool
}

// NewBuilder returns a Builder staging under stagingDir, installing into
// targetDir and placing the finished package in debDir.
func NewBuilder(runner execx.Runner, stagingDir, targetDir, debDir string, dryRun bool) *Builder {
	return &Builder{
		runner:     runner,
		stagingDir: stagingDir,
		targetDir:  targetDir,
		debDir:     debDir,
		dryRun:     dryRun,
	}
}

// BuildRoot returns the variant's package build directory under the staging
// root.
func (b *Builder) BuildRoot(v release.Variant) string {
	return filepath.Join(b.stagingDir, v.Slug+"debbuild")
}

// debianDir returns the package tree that becomes the deb's filesystem root.
func (b *Builder) debianDir(v release.Variant) string {
	return filepath.Join(b.BuildRoot(v), "debian")
}

// DebFilename returns the filename dpkg-deb derives from the control file.
func (b *Builder) DebFilename(v release.Variant, arch release.Arch, vers string) string {
	return fmt.Sprintf("%s_%s-%s_%s.deb", v.PackageName, vers, debRevision, arch.DebArch())
}

// CreateStructure wipes and recreates the package tree, then renders the
// control, preinst and postrm files. Earlier runs leave the tree root-owned,
// so the wipe goes through sudo.
func (b *Builder) CreateStructure(ctx context.Context, v release.Variant, arch release.Arch, vers string) error {
	debian := b.debianDir(v)

	if err := b.runner.RunOrSkip(ctx, "sudo rm -rf "+debian, false); err != nil {
		return err
	}

	for _, dir := range []string{
		debian,
		filepath.Join(debian, b.targetDir),
		filepath.Join(debian, "usr", "bin"),
		filepath.Join(debian, "usr", "share", "applications"),
		filepath.Join(debian, "DEBIAN"),
	} {
		if err := b.runner.RunOrSkip(ctx, "mkdir -p "+dir, false); err != nil {
			return err
		}
	}

	control := struct {
		PackageName string
		Version     string
		Revision    string
		Maintainer  string
		DebArch     string
		DisplayName string
		ProjectURL  string
		Provides    string
	}{
		PackageName: v.PackageName,
		Version:     vers,
		Revision:    debRevision,
		Maintainer:  maintainer,
		DebArch:     arch.DebArch(),
		DisplayName: v.DisplayName,
		ProjectURL:  version.ProjectURL,
		Provides:    v.Provides,
	}

	if err := b.renderFile(ctx, controlTemplate, control, filepath.Join(debian, "DEBIAN", "control"), 0o644); err != nil {
		return err
	}

	divert := struct{ PackageName, Slug string }{PackageName: v.PackageName, Slug: v.Slug}

	if err := b.renderFile(ctx, preinstTemplate, divert, filepath.Join(debian, "DEBIAN", "preinst"), 0o755); err != nil {
		return err
	}

	return b.renderFile(ctx, postrmTemplate, divert, filepath.Join(debian, "DEBIAN", "postrm"), 0o755)
}

// ExtractArchive unpacks the verified artifact into the package tree's
// install prefix.
func (b *Builder) ExtractArchive(ctx context.Context, v release.Variant, artifactPath string) error {
	flags, err := tarFlags(artifactPath)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Extracting %s", artifactPath)

	dest := filepath.Join(b.debianDir(v), b.targetDir)

	return b.runner.RunOrSkip(ctx, fmt.Sprintf("sudo tar -C %s %s %s", dest, flags, artifactPath), false)
}

// CreateSymlinks links the unpacked launcher into the package's /usr/bin.
func (b *Builder) CreateSymlinks(ctx context.Context, v release.Variant) error {
	target := filepath.Join(b.targetDir, v.Slug, v.Slug)
	link := filepath.Join(b.debianDir(v), "usr", "bin", v.Slug)

	return b.runner.RunOrSkip(ctx, fmt.Sprintf("sudo ln -s -f %s %s", target, link), false)
}

// CreateMenuEntry renders the applications-menu entry for the variant.
func (b *Builder) CreateMenuEntry(ctx context.Context, v release.Variant) error {
	logger.Infof(ctx, "Creating applications menu item for %s", v.DisplayName)

	entry := struct {
		Name        string
		GenericName string
		Comment     string
		Slug        string
		IconPath    string
	}{
		Name:        v.Menu.Name,
		GenericName: v.Menu.GenericName,
		Comment:     v.Menu.Comment,
		Slug:        v.Slug,
		IconPath:    filepath.Join(b.targetDir, v.Slug, v.Menu.IconRelPath),
	}

	menuPath := filepath.Join(b.debianDir(v), "usr", "share", "applications", "mozilla."+v.Slug+".desktop")

	if err := b.renderFile(ctx, desktopTemplate, entry, menuPath, 0o644); err != nil {
		return err
	}

	return b.runner.RunOrSkip(ctx, "sudo chown root:root "+menuPath, false)
}

// BuildPackage invokes dpkg-deb on the assembled tree. The tree is handed to
// root first so the packaged files carry root ownership.
func (b *Builder) BuildPackage(ctx context.Context, v release.Variant) error {
	root := b.BuildRoot(v)

	if err := b.runner.RunOrSkip(ctx, fmt.Sprintf("cd %s && sudo chown -R root:root debian", root), false); err != nil {
		return err
	}

	return b.runner.RunOrSkip(ctx, fmt.Sprintf("cd %s && dpkg-deb --build debian %s", root, b.debDir), false)
}

// renderFile writes a rendered template, honoring dry-run mode.
func (b *Builder) renderFile(ctx context.Context, tmpl *template.Template, data any, path string, perm os.FileMode) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}

	if b.dryRun {
		logger.Infof(ctx, "Dry run, skipping write of %s", path)
		return nil
	}

	if err := os.WriteFile(path, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	return nil
}

// tarFlags selects the tar invocation for the artifact's compression format.
func tarFlags(filename string) (string, error) {
	switch {
	case strings.HasSuffix(filename, ".tar.gz"):
		return "-xzf", nil
	case strings.HasSuffix(filename, ".tar.bz2"):
		return "-xjf", nil
	case strings.HasSuffix(filename, ".tar.xz"):
		return "-xJf", nil
	default:
		return "", fmt.Errorf("%w: %s", errUnknownArchiveFormat, filename)
	}
}
