// Package config holds the run configuration shared by all pipeline stages:
// selected product and architecture, mirror and keyserver lists, staging
// layout, and the dry-run/unattended switches.
//
// The configuration is built once per invocation from defaults, an optional
// settings file, and command-line flags, then threaded through every stage
// as an immutable value. Mirror and keyserver overrides are prepended, so
// operator-supplied entries are tried first.
package config
