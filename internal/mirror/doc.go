// Package mirror downloads release resources by substituting a mirror
// placeholder across an ordered list of mirror base locations.
//
// This is a bounded round-robin fallback, not an exponential backoff retry
// against a single host: mirror unavailability is more likely than a
// transient single-host blip, so diversifying sources beats re-hitting the
// same one. Each failure logs a transient-error notice and pauses a fixed
// two seconds before the next mirror; exhausting the list surfaces a typed
// *ExhaustedError.
package mirror
