package bootsig

// Config controls how a Client verifies manifests.
type Config struct {
	// Workers bounds concurrent verifications (0 = GOMAXPROCS)
	Workers int

	// CheckKey validates the manifest key's Montgomery constants before use
	CheckKey bool

	// FailFast stops at the first entry that fails to verify
	FailFast bool
}

// DefaultConfig returns a configuration that checks keys and verifies every
// entry using all available CPUs.
func DefaultConfig() Config {
	return Config{
		Workers:  0, // Auto-detect
		CheckKey: true,
		FailFast: false,
	}
}
