package bootsig

import "crypto/sha256"

// Entry is a single signed object to verify against a manifest's key.
type Entry struct {
	Label     string            // Human-readable name, may be empty
	Digest    [sha256.Size]byte // SHA-256 of the signed content
	Signature Int               // Signature as a big-endian decoded integer
}

// Manifest is a public key together with the entries signed by it.
// This is the core input type of the Client.
type Manifest struct {
	Key     *PublicKey
	Entries []*Entry
}

// Result is the outcome of verifying one entry.
type Result struct {
	Index int    // Position of the entry in the manifest
	Label string // Entry label
	Err   error  // nil when the signature is valid
}

// Valid reports whether the entry verified.
func (r Result) Valid() bool { return r.Err == nil }

// Report summarizes a manifest verification.
type Report struct {
	Key     *PublicKey
	Results []Result // One per entry, in manifest order
	Valid   int      // Entries that verified
	Invalid int      // Entries that failed, including skipped ones under FailFast
}

// OK reports whether every entry verified.
func (r *Report) OK() bool {
	return r.Invalid == 0 && r.Valid == len(r.Results)
}
