// Package release resolves the current upstream version of a product line
// and locates its downloadable artifact. Each product line is described by a
// Variant capability table: version-discovery endpoint and extraction
// pattern, artifact probing strategy, verification policy, and the desktop
// metadata consumed by the deb builder.
package release
