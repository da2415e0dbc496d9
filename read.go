package peac

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pameecs/peac/cache"
	"github.com/pameecs/peac/internal/sizing"
	"github.com/pameecs/peac/pool"
)

// Pending is the result of an asynchronous read. Wait or Await it to get
// the content.
type Pending = pool.Future[[]byte]

// ReadFile returns the content of the file at path.
//
// Paths are normalized with NormalizePath. ReadFile fails with an
// *fs.PathError wrapping ErrNotFound, ErrIsDirectory, ErrBounds, ErrCodec,
// or ErrClosed.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	return a.ReadFileAsync(path).Wait()
}

// ReadFileAsync starts reading the file at path and returns immediately
// after its chunk tasks have been submitted.
func (a *Archive) ReadFileAsync(path string) *Pending {
	e, ok := a.lookup(path)
	if !ok {
		return failed("read", path, ErrNotFound)
	}
	return a.readEntry(path, e.Name, e.DataOffset, e.DataSize)
}

// ReadEntry returns the content of e, which should come from this Archive.
func (a *Archive) ReadEntry(e Entry) ([]byte, error) {
	return a.ReadEntryAsync(e).Wait()
}

// ReadEntryAsync starts reading the content of e.
func (a *Archive) ReadEntryAsync(e Entry) *Pending {
	return a.readEntry(e.Name, e.Name, e.DataOffset, e.DataSize)
}

func (a *Archive) readEntry(path, name string, off, size uint64) *Pending {
	if size == 0 {
		return failed("read", path, ErrIsDirectory)
	}
	if a.maxFileSize > 0 && size > a.maxFileSize {
		return failed("read", path, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrSizeOverflow, name, size, a.maxFileSize))
	}
	return a.readRange(path, off, size)
}

// readRange reads size bytes of the uncompressed payload stream starting at
// off. Each overlapped chunk is decompressed by its own task; a final task
// joins them in chunk order and trims the bytes before off in the first
// chunk and after off+size in the last.
func (a *Archive) readRange(path string, off, size uint64) *Pending {
	if a.closed.Load() {
		return failed("read", path, ErrClosed)
	}
	first, last, err := a.span(off, size)
	if err != nil {
		return failed("read", path, err)
	}
	n, err := sizing.ToInt(size, ErrSizeOverflow)
	if err != nil {
		return failed("read", path, err)
	}

	sub := readSubmitter{s: a.pool, path: path}
	parts := make([]*pool.Future[[]byte], 0, last-first+1)
	for i := first; i <= last; i++ {
		parts = append(parts, pool.Go(sub, func() ([]byte, error) {
			return a.chunk(i)
		}))
	}

	head := off % ChunkSize
	return pool.Go(sub, func() ([]byte, error) {
		out := make([]byte, 0, n)
		for i, part := range parts {
			data, err := part.Wait()
			if err != nil {
				var pe *fs.PathError
				if errors.As(err, &pe) {
					return nil, err
				}
				return nil, &fs.PathError{Op: "read", Path: path, Err: err}
			}
			if i == 0 {
				data = data[head:]
			}
			if rest := n - len(out); len(data) > rest {
				data = data[:rest]
			}
			out = append(out, data...)
		}
		return out, nil
	})
}

// span returns the indices of the first and last chunk overlapping the
// byte range [off, off+size).
func (a *Archive) span(off, size uint64) (first, last uint64, err error) {
	end, ok := sizing.AddUint64(off, size)
	if !ok || size == 0 {
		return 0, 0, fmt.Errorf("%w: range at %d of %d bytes", ErrBounds, off, size)
	}
	first = off / ChunkSize
	last = (end - 1) / ChunkSize
	if last >= uint64(len(a.chunks)) {
		return 0, 0, fmt.Errorf("%w: range [%d, %d) needs chunk %d of %d", ErrBounds, off, end, last, len(a.chunks))
	}
	return first, last, nil
}

// chunk returns the decompressed content of chunk i. The returned slice may
// be shared with other readers and must not be modified.
func (a *Archive) chunk(i uint64) ([]byte, error) {
	key := cache.Key{Archive: a.id, Chunk: i}
	if a.cache != nil {
		if data, ok := a.cache.Get(key); ok {
			return data, nil
		}
	}

	v, err, shared := a.loads.Do(strconv.FormatUint(i, 10), func() (any, error) {
		if a.cache != nil {
			if data, ok := a.cache.Get(key); ok {
				return data, nil
			}
		}
		data, err := a.loadChunk(i)
		if err != nil {
			return nil, err
		}
		if a.cache != nil {
			a.cache.Put(key, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		a.log().Debug("chunk load shared", "chunk", i)
	}
	return v.([]byte), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// loadChunk decompresses chunk i straight from the mapping.
func (a *Archive) loadChunk(i uint64) ([]byte, error) {
	r := a.chunks[i]
	start, ok := sizing.AddUint64(a.chunkDataStart, r.Offset)
	if !ok {
		return nil, fmt.Errorf("%w: chunk %d offset overflows", ErrBounds, i)
	}
	at, err := sizing.ToInt64(start, ErrBounds)
	if err != nil {
		return nil, err
	}
	n, err := sizing.ToInt(r.Length, ErrBounds)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = a.file.View(at, n, func(compressed []byte) error {
		var derr error
		out, derr = a.codec.Decompress(compressed, ChunkSize)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", i, err)
	}
	return out, nil
}

// readSubmitter reports a closed pool as a read of a closed archive. Close
// can shut an owned pool between the closed check and a submission.
type readSubmitter struct {
	s    pool.Submitter
	path string
}

func (r readSubmitter) Submit(task func()) error {
	err := r.s.Submit(task)
	if errors.Is(err, pool.ErrClosed) {
		return &fs.PathError{Op: "read", Path: r.path, Err: fmt.Errorf("%w: %w", ErrClosed, err)}
	}
	return err
}

func failed(op, path string, err error) *Pending {
	return pool.Resolved[[]byte](nil, &fs.PathError{Op: op, Path: path, Err: err})
}
