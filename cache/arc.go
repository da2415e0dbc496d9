package cache

import (
	arc "github.com/hashicorp/golang-lru/arc/v2"
)

// DefaultEntries is the chunk capacity used when a non-positive size is given
// (8 MiB of 2 KiB chunks).
const DefaultEntries = 4096

// ARC is an in-memory chunk cache with adaptive replacement, which keeps hot
// chunks resident when a large sequential read streams through.
type ARC struct {
	c *arc.ARCCache[Key, []byte]
}

var _ Cache = (*ARC)(nil)

// NewARC returns a cache holding at most entries chunks.
func NewARC(entries int) (*ARC, error) {
	if entries <= 0 {
		entries = DefaultEntries
	}
	c, err := arc.NewARC[Key, []byte](entries)
	if err != nil {
		return nil, err
	}
	return &ARC{c: c}, nil
}

// Get implements Cache.
func (a *ARC) Get(key Key) ([]byte, bool) {
	return a.c.Get(key)
}

// Put implements Cache.
func (a *ARC) Put(key Key, chunk []byte) {
	a.c.Add(key, chunk)
}

// Len implements Cache.
func (a *ARC) Len() int {
	return a.c.Len()
}

// Purge implements Cache.
func (a *ARC) Purge() {
	a.c.Purge()
}
