package deb

import "text/template"

// maintainer appears in the control file of every built package.
const maintainer = "Mozdeb Maintainers <maintainers@mozdeb.org>"

// debRevision is the Debian revision appended to the upstream version.
const debRevision = "0mozdeb1"

// controlTemplate renders DEBIAN/control. The description warns about
// profile data the same way the packaged upstream releases always have.
var controlTemplate = template.Must(template.New("control").Parse(`Package: {{.PackageName}}
Version: {{.Version}}-{{.Revision}}
Maintainer: {{.Maintainer}}
Architecture: {{.DebArch}}
Description: Mozilla {{.DisplayName}}, official Mozilla build, packaged as a deb by the mozdeb project.
 This is the unmodified Mozilla release binary of {{.DisplayName}}, packaged
 into a .deb by the mozdeb project.
 .
 It is strongly recommended that you back up your application profile data
 before installing, just in case.
 .
 Project homepage:
 {{.ProjectURL}}
Provides: {{.Provides}}
`))

// preinstTemplate diverts the distribution's own launcher out of the way on
// install.
var preinstTemplate = template.Must(template.New("preinst").Parse(`#!/bin/sh
case "$1" in
    install)
        dpkg-divert --package {{.PackageName}} --add --divert /usr/bin/{{.Slug}}.distrib --rename /usr/bin/{{.Slug}}
    ;;
esac
`))

// postrmTemplate restores the diverted launcher on removal.
var postrmTemplate = template.Must(template.New("postrm").Parse(`#!/bin/sh
case "$1" in
    remove|abort-install|disappear)
        dpkg-divert --package {{.PackageName}} --remove --divert /usr/bin/{{.Slug}}.distrib --rename /usr/bin/{{.Slug}}
    ;;
esac
`))

// desktopTemplate renders the applications-menu entry.
var desktopTemplate = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Encoding=UTF-8
Name={{.Name}}
GenericName={{.GenericName}}
Comment={{.Comment}}
Exec={{.Slug}} %u
Icon={{.IconPath}}
Terminal=false
X-MultipleArgs=false
StartupNotify=true
Type=Application
Categories=Application;Network;
`))
