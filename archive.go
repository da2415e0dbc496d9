package peac

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/pameecs/peac/cache"
	"github.com/pameecs/peac/internal/chunkindex"
	"github.com/pameecs/peac/internal/codec"
	"github.com/pameecs/peac/internal/format"
	"github.com/pameecs/peac/internal/mapped"
	"github.com/pameecs/peac/internal/sizing"
	"github.com/pameecs/peac/internal/tree"
	"github.com/pameecs/peac/pool"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// archiveIDs scopes chunk cache keys to one Archive value.
var archiveIDs atomic.Uint64

// Archive is an opened archive.
//
// All metadata is decoded by Open; afterwards lookups never touch the file
// and reads only touch the chunks they overlap. An Archive is safe for
// concurrent use.
type Archive struct {
	id     uint64
	path   string
	file   *mapped.File
	codec  *codec.Codec
	header format.Header
	sizes  format.SizeInfo
	sum    uint64

	tree           *tree.Tree
	root           Entry
	chunks         []ChunkRange
	chunkDataStart uint64

	pool      pool.Submitter
	ownedPool *pool.Pool
	workers   int
	cache     cache.Cache
	loads     singleflight.Group // zero value is valid

	checksum              Checksum
	maxFileSize           uint64
	maxDecoderMemory      uint64
	decoderConcurrencySet bool
	decoderConcurrency    int
	decoderLowmem         bool
	logger                *slog.Logger

	closed atomic.Bool

	digestOnce sync.Once
	digest     digest.Digest
	digestErr  error
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open maps the archive at path and decodes its metadata.
//
// Open validates, in order: the magic, the format version, the size
// information, the footer checksum over the three compressed blobs, the
// entry tree, and the chunk index. Any failure releases the mapping and is
// returned wrapped in an *fs.PathError; use errors.Is with ErrFormat,
// ErrIntegrity, or ErrBounds to classify it.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := mapped.Open(path)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	a, err := newArchive(path, f, opts)
	if err != nil {
		_ = f.Close() //nolint:errcheck // load error takes precedence
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return a, nil
}

// OpenBytes decodes an archive held in memory. The caller must not modify
// data while the Archive is open.
func OpenBytes(data []byte, opts ...Option) (*Archive, error) {
	a, err := newArchive("", mapped.FromBytes(data), opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newArchive(path string, f *mapped.File, opts []Option) (*Archive, error) {
	a := &Archive{
		id:               archiveIDs.Add(1),
		path:             path,
		file:             f,
		maxFileSize:      DefaultMaxFileSize,
		maxDecoderMemory: codec.DefaultMaxDecoderMemory,
	}
	for _, opt := range opts {
		opt(a)
	}

	codecOpts := []codec.Option{
		codec.WithMaxDecoderMemory(a.maxDecoderMemory),
		codec.WithDecoderLowmem(a.decoderLowmem),
	}
	if a.decoderConcurrencySet {
		codecOpts = append(codecOpts, codec.WithDecoderConcurrency(a.decoderConcurrency))
	}
	c, err := codec.New(codecOpts...)
	if err != nil {
		return nil, err
	}
	a.codec = c

	if err := a.load(); err != nil {
		_ = c.Close() //nolint:errcheck // load error takes precedence
		return nil, err
	}

	if a.pool == nil {
		a.ownedPool = pool.New(a.workers, pool.WithLogger(a.logger))
		a.pool = a.ownedPool
	}
	return a, nil
}

// load decodes and validates every metadata region.
func (a *Archive) load() error {
	magic, err := a.file.Read(0, len(format.Magic))
	if err != nil {
		return fmt.Errorf("%w: read magic: %w", ErrFormat, err)
	}
	if err := format.ValidateMagic(magic); err != nil {
		return err
	}

	raw, err := a.file.Read(0, format.HeaderSize)
	if err != nil {
		return fmt.Errorf("%w: read header: %w", ErrFormat, err)
	}
	if a.header, err = format.DecodeHeader(raw); err != nil {
		return fmt.Errorf("%w: decode header: %w", ErrFormat, err)
	}
	if err := a.header.Validate(); err != nil {
		return err
	}
	a.log().Debug("archive header", "path", a.path, "header", a.header)

	raw, err = a.file.Read(format.HeaderSize, format.SizeInfoSize)
	if err != nil {
		return fmt.Errorf("%w: read size info: %w", ErrFormat, err)
	}
	if a.sizes, err = format.DecodeSizeInfo(raw); err != nil {
		return fmt.Errorf("%w: decode size info: %w", ErrFormat, err)
	}
	a.log().Debug("archive size info", "path", a.path, "sizes", a.sizes)

	if err := a.verify(); err != nil {
		return err
	}
	if err := a.loadTree(); err != nil {
		return err
	}
	if err := a.loadChunkIndex(); err != nil {
		return err
	}

	a.log().Debug("archive loaded",
		"path", a.path,
		"chunks", len(a.chunks),
		"chunk_data_start", a.chunkDataStart,
		"checksum", a.checksum.String(),
	)
	return nil
}

// verify checks the footer against a checksum of the three blobs.
func (a *Archive) verify() error {
	body, err := a.sizes.BodySize()
	if err != nil {
		return err
	}
	bodyLen, err := sizing.ToInt(body, fmt.Errorf("%w: body of %d bytes", ErrFormat, body))
	if err != nil {
		return err
	}
	footerOff, ok := sizing.AddUint64(format.PreambleSize, body)
	if !ok {
		return fmt.Errorf("%w: footer offset overflows", ErrFormat)
	}
	footerAt, err := sizing.ToInt64(footerOff, fmt.Errorf("%w: footer offset %d", ErrFormat, footerOff))
	if err != nil {
		return err
	}

	raw, err := a.file.Read(footerAt, format.FooterSize)
	if err != nil {
		return fmt.Errorf("%w: read footer: %w", ErrFormat, err)
	}
	stored, err := format.DecodeFooter(raw)
	if err != nil {
		return fmt.Errorf("%w: decode footer: %w", ErrFormat, err)
	}

	table := a.checksum.table()
	var computed uint64
	if err := a.file.View(format.PreambleSize, bodyLen, func(b []byte) error {
		computed = table.Checksum(b)
		return nil
	}); err != nil {
		return fmt.Errorf("%w: read body: %w", ErrFormat, err)
	}
	if computed != stored {
		return fmt.Errorf("%w: footer %#016x, computed %#016x (%s)", ErrIntegrity, stored, computed, table.Name())
	}
	a.sum = stored

	if trailing := int64(a.file.Len()) - footerAt - format.FooterSize; trailing > 0 {
		a.log().Debug("ignoring trailing bytes after footer", "path", a.path, "bytes", trailing)
	}
	return nil
}

// loadTree decompresses and decodes the entry blob.
func (a *Archive) loadTree() error {
	raw, err := a.file.Read(format.PreambleSize, int(a.sizes.EntryCompressed))
	if err != nil {
		return fmt.Errorf("%w: read entry blob: %w", ErrFormat, err)
	}
	buf, err := a.codec.Decompress(raw, int(a.sizes.EntryUncompressed))
	if err != nil {
		return fmt.Errorf("%w: entry blob: %w", ErrFormat, err)
	}
	t, err := tree.Decode(buf)
	if err != nil {
		return err
	}
	a.tree = t
	a.root = Entry{Name: ".", Children: t.Root}
	return nil
}

// loadChunkIndex decompresses and validates the chunk offset table.
func (a *Archive) loadChunkIndex() error {
	n, err := sizing.ToInt(a.sizes.ChunkIndexCompressed, fmt.Errorf("%w: chunk index of %d bytes", ErrFormat, a.sizes.ChunkIndexCompressed))
	if err != nil {
		return err
	}
	size, err := sizing.ToInt(a.sizes.ChunkIndexUncompressed, fmt.Errorf("%w: chunk index of %d bytes", ErrFormat, a.sizes.ChunkIndexUncompressed))
	if err != nil {
		return err
	}
	raw, err := a.file.Read(format.PreambleSize+int64(a.sizes.EntryCompressed), n)
	if err != nil {
		return fmt.Errorf("%w: read chunk index: %w", ErrFormat, err)
	}
	buf, err := a.codec.Decompress(raw, size)
	if err != nil {
		return fmt.Errorf("%w: chunk index: %w", ErrFormat, err)
	}
	chunks, err := chunkindex.Decode(buf, a.sizes.ChunkDataCompressed)
	if err != nil {
		return err
	}
	start, err := a.sizes.ChunkDataStart()
	if err != nil {
		return err
	}
	a.chunks = chunks
	a.chunkDataStart = start
	return nil
}

// Close releases the mapping and, if the Archive created it, the worker pool.
//
// Reads issued after Close fail with ErrClosed. Close waits for chunk
// reads that are already touching the mapping. Calling Close more than once
// is a no-op.
func (a *Archive) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	err := a.file.Close()
	if a.ownedPool != nil {
		if perr := a.ownedPool.Close(); err == nil {
			err = perr
		}
	}
	if cerr := a.codec.Close(); err == nil {
		err = cerr
	}
	return err
}

// Exists reports whether path names an entry. The root always exists.
func (a *Archive) Exists(path string) bool {
	_, ok := a.lookup(path)
	return ok
}

// Entry returns a copy of the entry at path, including its subtree.
// The root is returned as a directory named ".".
func (a *Archive) Entry(path string) (Entry, error) {
	e, ok := a.lookup(path)
	if !ok {
		return Entry{}, &fs.PathError{Op: "entry", Path: path, Err: ErrNotFound}
	}
	return e.Clone(), nil
}

// IsFile reports whether e stores content.
func (a *Archive) IsFile(e Entry) bool {
	return !e.IsDir()
}

// IsDirectory reports whether e is a directory.
func (a *Archive) IsDirectory(e Entry) bool {
	return e.IsDir()
}

// lookup resolves path without copying. The result aliases the tree.
func (a *Archive) lookup(path string) (*Entry, bool) {
	segs, ok := segments(path)
	if !ok {
		return nil, false
	}
	e, ok := a.tree.Resolve(segs)
	if !ok {
		return nil, false
	}
	if e == nil {
		return &a.root, true
	}
	return e, true
}

// Walk calls fn for every entry below the root in depth-first order,
// parents before children and siblings in stored order. The Entry passed to
// fn has its Children cleared. Returning fs.SkipDir from a directory skips
// its children; any other error stops the walk and is returned.
func (a *Archive) Walk(fn func(path string, e Entry) error) error {
	err := walk("", a.root.Children, fn)
	if err == fs.SkipDir || err == fs.SkipAll { //nolint:errorlint // sentinels are returned unwrapped
		return nil
	}
	return err
}

func walk(prefix string, entries []Entry, fn func(string, Entry) error) error {
	for i := range entries {
		e := entries[i]
		name := e.Name
		if prefix != "" {
			name = prefix + "/" + e.Name
		}
		children := e.Children
		e.Children = nil
		if err := fn(name, e); err != nil {
			if err == fs.SkipDir && e.IsDir() { //nolint:errorlint // sentinel is returned unwrapped
				continue
			}
			return err
		}
		if err := walk(name, children, fn); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries in the archive, excluding the root.
func (a *Archive) Len() int {
	return count(a.root.Children)
}

func count(entries []Entry) int {
	n := len(entries)
	for i := range entries {
		n += count(entries[i].Children)
	}
	return n
}

// ChunkCount returns the number of chunks in the chunk table.
func (a *Archive) ChunkCount() int {
	return len(a.chunks)
}

// Chunks returns a copy of the chunk table.
func (a *Archive) Chunks() []ChunkRange {
	out := make([]ChunkRange, len(a.chunks))
	copy(out, a.chunks)
	return out
}

// Size returns the size of the archive file in bytes.
func (a *Archive) Size() int64 {
	return int64(a.file.Len())
}

// Info describes an archive's layout.
type Info struct {
	Version                string
	EntryCompressed        uint32
	EntryUncompressed      uint32
	ChunkIndexCompressed   uint64
	ChunkIndexUncompressed uint64
	ChunkDataCompressed    uint64
	ChunkDataStart         uint64
	Chunks                 int
	Entries                int
	Checksum               uint64
	ChecksumVariant        string
	Size                   int64
}

// Info returns the archive's header, size information, and footer.
func (a *Archive) Info() Info {
	return Info{
		Version:                a.header.Version.String(),
		EntryCompressed:        a.sizes.EntryCompressed,
		EntryUncompressed:      a.sizes.EntryUncompressed,
		ChunkIndexCompressed:   a.sizes.ChunkIndexCompressed,
		ChunkIndexUncompressed: a.sizes.ChunkIndexUncompressed,
		ChunkDataCompressed:    a.sizes.ChunkDataCompressed,
		ChunkDataStart:         a.chunkDataStart,
		Chunks:                 len(a.chunks),
		Entries:                a.Len(),
		Checksum:               a.sum,
		ChecksumVariant:        a.checksum.String(),
		Size:                   a.Size(),
	}
}

// Digest returns the sha256 digest of the whole archive file. It is computed
// on first use.
func (a *Archive) Digest() (digest.Digest, error) {
	a.digestOnce.Do(func() {
		a.digest, a.digestErr = digest.FromReader(io.NewSectionReader(a.file, 0, a.Size()))
	})
	return a.digest, a.digestErr
}

// Stream returns a reader over the raw archive bytes.
func (a *Archive) Stream() io.Reader {
	return io.NewSectionReader(a.file, 0, a.Size())
}
