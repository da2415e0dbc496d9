package peac

import "log/slog"

// DefaultMaxFiles is the default limit used when no MaxFiles option is set.
const DefaultMaxFiles = 200_000

// createConfig holds configuration for archive creation.
type createConfig struct {
	level    int
	checksum Checksum
	maxFiles int
	workers  int
	logger   *slog.Logger
}

// CreateOption configures archive creation.
type CreateOption func(*createConfig)

// CreateWithLevel sets the zstd level used for every blob. Values <= 0 use
// the default level.
func CreateWithLevel(level int) CreateOption {
	return func(cfg *createConfig) {
		cfg.level = level
	}
}

// CreateWithChecksum selects the footer checksum variant. Archives written
// with ChecksumECMAMSB must be opened with WithChecksum(ChecksumECMAMSB).
func CreateWithChecksum(c Checksum) CreateOption {
	return func(cfg *createConfig) {
		cfg.checksum = c
	}
}

// CreateWithMaxFiles limits the number of files included in the archive.
// Zero uses DefaultMaxFiles. Negative means no limit.
func CreateWithMaxFiles(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.maxFiles = n
	}
}

// CreateWithWorkers bounds how many chunks are compressed concurrently.
// Values <= 0 use GOMAXPROCS.
func CreateWithWorkers(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.workers = n
	}
}

// CreateWithLogger sets the logger for archive creation.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}
