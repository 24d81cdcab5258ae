// Package pipeline sequences a packaging run: version resolution and
// confirmation, artifact download and verification, deb assembly, repository
// publishing, upload and cleanup. The requested action gates which stages
// execute; skipped stages have no side effects.
package pipeline
