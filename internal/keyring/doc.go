// Package keyring ensures the public keys needed for release-signature
// verification are present locally, fetching missing ones from an ordered
// keyserver list with bounded retries.
//
// Keys are stored as armored files named <keyid>.asc under the store
// directory. A key fetched from a keyserver is only accepted when its
// fingerprint matches the requested id. Exhausting every keyserver across
// all rounds is fatal for the pipeline: signature verification is
// meaningless without the key.
package keyring
