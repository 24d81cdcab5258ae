// Package deb stages the vendor archive into a Debian package tree, renders
// the package's control files and desktop entry, and drives the external
// packaging and publishing tools (dpkg-deb, reprepro, rsync). It contains no
// retry or verification logic; its inputs are already verified.
package deb
