// Package config provides configuration management for the integrity monitor.
package config

// Default configuration values for sfim.
const (
	// DefaultWatchDir is the directory tree the agent observes.
	DefaultWatchDir = "./monitored"

	// DefaultDownloadDir is where fetched files are written.
	DefaultDownloadDir = "./downloads"

	// DefaultManifestPath is the append-only audit sink.
	DefaultManifestPath = "./logs/hash_manifest.log"

	// DefaultLogFile is the agent's own log file.
	DefaultLogFile = "./logs/integrity.log"

	// DefaultStabilityChecks is the number of consecutive identical
	// size polls required before a file is considered stable.
	DefaultStabilityChecks = 3

	// DefaultStabilityInterval is the size poll interval in seconds.
	DefaultStabilityInterval = 0.5

	// DefaultHashAlgorithm is the digest algorithm.
	DefaultHashAlgorithm = "sha256"

	// DefaultChunkSize is the streaming read size in bytes.
	DefaultChunkSize = 65536

	// DefaultMaxRetries is the number of digest attempts per file.
	DefaultMaxRetries = 3

	// DefaultDownloadTimeout is the HTTP client timeout in seconds.
	DefaultDownloadTimeout = 30
)
