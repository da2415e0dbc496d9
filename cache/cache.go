// Package cache provides caches for decompressed archive chunks.
//
// Chunk decompression dominates the cost of small random reads. A cache lets
// repeated or overlapping reads of the same region skip the codec entirely.
package cache

// Key identifies one decompressed chunk of one open archive.
type Key struct {
	// Archive is a process-unique identifier assigned when the archive is opened.
	Archive uint64

	// Chunk is the logical chunk index.
	Chunk uint64
}

// Cache stores decompressed chunks.
//
// Values passed to Put and returned by Get are shared and must be treated as
// immutable by every caller. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached chunk for key.
	Get(key Key) ([]byte, bool)

	// Put stores a chunk. Implementations may evict other entries.
	Put(key Key, chunk []byte)

	// Len returns the number of cached chunks.
	Len() int

	// Purge removes every entry.
	Purge()
}
