package peac

import (
	"log/slog"

	"github.com/pameecs/peac/cache"
	"github.com/pameecs/peac/pool"
)

// DefaultMaxFileSize is the default per-file read limit (4 GiB).
const DefaultMaxFileSize = 4 << 30

// Option configures an Archive.
type Option func(*Archive)

// WithPool runs chunk decompression on a caller-owned pool. The pool must
// execute tasks in submission order (see pool.Submitter) and must outlive
// the Archive; Close does not close it.
func WithPool(p pool.Submitter) Option {
	return func(a *Archive) {
		a.pool = p
	}
}

// WithWorkers sets the size of the private pool created when WithPool is
// not given. Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Archive) {
		a.workers = n
	}
}

// WithLogger sets the logger for load diagnostics and cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithChecksum selects the footer checksum variant. The default is
// ChecksumECMA.
func WithChecksum(c Checksum) Option {
	return func(a *Archive) {
		a.checksum = c
	}
}

// WithChunkCache caches decompressed chunks.
//
// A cache may be shared by several archives; keys are scoped to the
// Archive. Concurrent loads of the same chunk are deduplicated whether or
// not a cache is set.
func WithChunkCache(c cache.Cache) Option {
	return func(a *Archive) {
		a.cache = c
	}
}

// WithMaxFileSize limits the size of a single read. Set limit to 0 to
// disable the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(a *Archive) {
		a.maxFileSize = limit
	}
}

// WithMaxDecoderMemory limits the maximum memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(a *Archive) {
		a.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency.
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(a *Archive) {
		if n < 0 {
			n = 0
		}
		a.decoderConcurrency = n
		a.decoderConcurrencySet = true
	}
}

// WithDecoderLowmem sets whether the zstd decoder should use low-memory mode (default: false).
func WithDecoderLowmem(enabled bool) Option {
	return func(a *Archive) {
		a.decoderLowmem = enabled
	}
}
