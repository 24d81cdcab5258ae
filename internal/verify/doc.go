// Package verify proves a downloaded release artifact is untampered.
//
// It downloads the vendor's checksum manifest (and, when the product line
// requires it, the manifest's detached signature), verifies the signature
// against locally held keys, extracts the manifest line for the artifact
// using an explicit per-product filter, persists that line with the recorded
// path rewritten to the local filename, and compares the artifact's computed
// digest against the recorded one.
//
// Verification failures are never retried: the operator is offered deletion
// of the suspect files and the run terminates, so a fresh invocation starts
// from a clean download.
package verify
