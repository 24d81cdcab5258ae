package deb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mozdeb/mozdeb/internal/release"
)

// recordingRunner records every command line. mkdir commands are executed
// for real so rendered files have a tree to land in.
type recordingRunner struct {
	commands []string
}

func (r *recordingRunner) Run(_ context.Context, command string) error {
	r.commands = append(r.commands, command)

	if dir, ok := strings.CutPrefix(command, "mkdir -p "); ok {
		return os.MkdirAll(dir, 0o755)
	}

	return nil
}

func (r *recordingRunner) Output(_ context.Context, command string) (string, error) {
	r.commands = append(r.commands, command)
	return "", nil
}

func (r *recordingRunner) RunOrSkip(ctx context.Context, command string, _ bool) error {
	return r.Run(ctx, command)
}

func newTestBuilder(t *testing.T, dryRun bool) (*Builder, *recordingRunner, string) {
	t.Helper()

	staging := t.TempDir()
	runner := &recordingRunner{}

	return NewBuilder(runner, staging, "/opt", "/home/op/debs", dryRun), runner, staging
}

func TestCreateStructure(t *testing.T) {
	t.Parallel()

	b, runner, staging := newTestBuilder(t, false)
	v := release.VariantFor(release.Browser)

	require.NoError(t, b.CreateStructure(context.Background(), v, release.X64, "140.0"))

	debian := filepath.Join(staging, "firefoxdebbuild", "debian")
	require.Equal(t, "sudo rm -rf "+debian, runner.commands[0])

	control, err := os.ReadFile(filepath.Join(debian, "DEBIAN", "control"))
	require.NoError(t, err)
	require.Contains(t, string(control), "Package: firefox-mozilla-build\n")
	require.Contains(t, string(control), "Version: 140.0-0mozdeb1\n")
	require.Contains(t, string(control), "Architecture: amd64\n")
	require.Contains(t, string(control), "Provides: firefox\n")

	preinst, err := os.ReadFile(filepath.Join(debian, "DEBIAN", "preinst"))
	require.NoError(t, err)
	require.Contains(t, string(preinst),
		"dpkg-divert --package firefox-mozilla-build --add --divert /usr/bin/firefox.distrib --rename /usr/bin/firefox")

	info, err := os.Stat(filepath.Join(debian, "DEBIAN", "postrm"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCreateStructureDryRun(t *testing.T) {
	t.Parallel()

	b, _, staging := newTestBuilder(t, true)
	v := release.VariantFor(release.Browser)

	require.NoError(t, b.CreateStructure(context.Background(), v, release.X64, "140.0"))

	_, err := os.Stat(filepath.Join(staging, "firefoxdebbuild", "debian", "DEBIAN", "control"))
	require.True(t, os.IsNotExist(err))
}

func TestExtractArchive(t *testing.T) {
	t.Parallel()

	b, runner, staging := newTestBuilder(t, false)
	v := release.VariantFor(release.Browser)

	require.NoError(t, b.ExtractArchive(context.Background(), v, "/tmp/firefox-140.0.tar.xz"))
	require.Equal(t,
		"sudo tar -C "+filepath.Join(staging, "firefoxdebbuild", "debian", "/opt")+" -xJf /tmp/firefox-140.0.tar.xz",
		runner.commands[len(runner.commands)-1])

	require.NoError(t, b.ExtractArchive(context.Background(), v, "/tmp/seamonkey-2.53.tar.bz2"))
	require.Contains(t, runner.commands[len(runner.commands)-1], " -xjf ")

	err := b.ExtractArchive(context.Background(), v, "/tmp/firefox-140.0.zip")
	require.ErrorIs(t, err, errUnknownArchiveFormat)
}

func TestCreateSymlinks(t *testing.T) {
	t.Parallel()

	b, runner, staging := newTestBuilder(t, false)
	v := release.VariantFor(release.MailClient)

	require.NoError(t, b.CreateSymlinks(context.Background(), v))
	require.Equal(t,
		"sudo ln -s -f /opt/thunderbird/thunderbird "+
			filepath.Join(staging, "thunderbirddebbuild", "debian", "usr", "bin", "thunderbird"),
		runner.commands[0])
}

func TestCreateMenuEntry(t *testing.T) {
	t.Parallel()

	b, runner, staging := newTestBuilder(t, false)
	v := release.VariantFor(release.Browser)

	applications := filepath.Join(staging, "firefoxdebbuild", "debian", "usr", "share", "applications")
	require.NoError(t, os.MkdirAll(applications, 0o755))

	require.NoError(t, b.CreateMenuEntry(context.Background(), v))

	entry, err := os.ReadFile(filepath.Join(applications, "mozilla.firefox.desktop"))
	require.NoError(t, err)
	require.Contains(t, string(entry), "Name=Mozilla Build of Firefox\n")
	require.Contains(t, string(entry), "Exec=firefox %u\n")
	require.Contains(t, string(entry), "Icon=/opt/firefox/icons/mozicon50.xpm\n")

	require.Contains(t, runner.commands[len(runner.commands)-1], "sudo chown root:root ")
}

func TestBuildPackage(t *testing.T) {
	t.Parallel()

	b, runner, staging := newTestBuilder(t, false)
	v := release.VariantFor(release.Suite)

	require.NoError(t, b.BuildPackage(context.Background(), v))

	root := filepath.Join(staging, "seamonkeydebbuild")
	require.Equal(t, []string{
		"cd " + root + " && sudo chown -R root:root debian",
		"cd " + root + " && dpkg-deb --build debian /home/op/debs",
	}, runner.commands)
}

func TestDebFilename(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t, false)

	require.Equal(t, "firefox-mozilla-build_140.0-0mozdeb1_amd64.deb",
		b.DebFilename(release.VariantFor(release.Browser), release.X64, "140.0"))
	require.Equal(t, "seamonkey-mozilla-build_2.53.19-0mozdeb1_i386.deb",
		b.DebFilename(release.VariantFor(release.Suite), release.X86, "2.53.19"))
}
