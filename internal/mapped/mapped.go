// Package mapped provides a bounds-checked, read-only view of a file mapped
// into memory.
package mapped

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/pameecs/peac/internal/peactype"
)

// File is a read-only memory mapping of a whole file.
//
// Reads are safe for concurrent use. Close waits for in-flight reads and any
// read after Close returns ErrClosed.
type File struct {
	mu      sync.RWMutex
	data    []byte
	size    int
	closed  bool
	release func([]byte) error
}

// Open maps the file at path read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("map %s: not a regular file", path)
	}
	size := info.Size()
	if size > math.MaxInt {
		return nil, fmt.Errorf("map %s: %w", path, peactype.ErrSizeOverflow)
	}
	if size == 0 {
		return &File{}, nil
	}

	data, release, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return &File{data: data, size: len(data), release: release}, nil
}

// FromBytes wraps an in-memory buffer with the same bounds-checked surface.
// The caller must not modify data afterwards.
func FromBytes(data []byte) *File {
	return &File{data: data, size: len(data)}
}

// Len returns the size of the mapping in bytes.
func (f *File) Len() int {
	return f.size
}

// Read returns a copy of the n bytes starting at off.
func (f *File) Read(off int64, n int) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, peactype.ErrClosed
	}
	if err := f.check(off, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, f.data[off:])
	return out, nil
}

// View calls fn with the n bytes starting at off without copying them.
// The slice aliases the mapping and is only valid until fn returns; Close
// blocks until fn has returned.
func (f *File) View(off int64, n int, fn func([]byte) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return peactype.ErrClosed
	}
	if err := f.check(off, n); err != nil {
		return err
	}
	return fn(f.data[off : off+int64(n) : off+int64(n)])
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, peactype.ErrClosed
	}
	if off < 0 || off > int64(len(f.data)) {
		return 0, fmt.Errorf("%w: offset %d outside mapping of %d bytes", peactype.ErrBounds, off, len(f.data))
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	data := f.data
	f.data = nil
	if f.release == nil || data == nil {
		return nil
	}
	if err := f.release(data); err != nil {
		return fmt.Errorf("unmap: %w", err)
	}
	return nil
}

func (f *File) check(off int64, n int) error {
	if off < 0 || n < 0 {
		return fmt.Errorf("%w: negative range (offset %d, length %d)", peactype.ErrBounds, off, n)
	}
	size := int64(len(f.data))
	if off > size || int64(n) > size-off {
		return fmt.Errorf("%w: range [%d, %d) outside mapping of %d bytes", peactype.ErrBounds, off, off+int64(n), size)
	}
	return nil
}
