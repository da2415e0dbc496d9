package peac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pameecs/peac/internal/binio"
	"github.com/pameecs/peac/internal/checksum"
	"github.com/pameecs/peac/internal/chunkindex"
	"github.com/pameecs/peac/internal/codec"
	"github.com/pameecs/peac/internal/file"
	"github.com/pameecs/peac/internal/format"
	"github.com/pameecs/peac/internal/platform"
	"github.com/pameecs/peac/internal/sizing"
	"github.com/pameecs/peac/internal/tree"
)

// Builder assembles an archive in memory and writes it with WriteTo.
//
// Directories are created implicitly for every file path. Siblings are
// written sorted by name and file content is laid out in that depth-first
// order, so reading a directory's files in order touches chunks
// sequentially. A Builder is not safe for concurrent use.
type Builder struct {
	cfg   createConfig
	root  node
	files int
	bytes uint64
}

type node struct {
	name     string
	data     []byte
	dir      bool
	children map[string]*node
}

func (n *node) child(name string) (*node, bool) {
	c, ok := n.children[name]
	return c, ok
}

func (n *node) add(c *node) {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	n.children[c.name] = c
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...CreateOption) *Builder {
	b := &Builder{root: node{dir: true}}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	return b
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Builder) log() *slog.Logger {
	if b.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.cfg.logger
}

// AddDir adds an empty directory at path, creating parents as needed.
// Adding an existing directory is a no-op.
func (b *Builder) AddDir(path string) error {
	segs, err := builderSegments(path)
	if err != nil {
		return &fs.PathError{Op: "adddir", Path: path, Err: err}
	}
	if _, err := b.dir(segs); err != nil {
		return &fs.PathError{Op: "adddir", Path: path, Err: err}
	}
	return nil
}

// AddFile adds a file at path with the given content, creating parent
// directories as needed. The Builder keeps a reference to data.
func (b *Builder) AddFile(path string, data []byte) error {
	segs, err := builderSegments(path)
	if err != nil {
		return &fs.PathError{Op: "addfile", Path: path, Err: err}
	}
	if len(data) == 0 {
		return &fs.PathError{Op: "addfile", Path: path, Err: ErrEmptyFile}
	}
	if limit := b.maxFiles(); limit > 0 && b.files >= limit {
		return &fs.PathError{Op: "addfile", Path: path, Err: ErrTooManyFiles}
	}
	total, ok := sizing.AddUint64(b.bytes, uint64(len(data)))
	if !ok {
		return &fs.PathError{Op: "addfile", Path: path, Err: ErrSizeOverflow}
	}

	parent, err := b.dir(segs[:len(segs)-1])
	if err != nil {
		return &fs.PathError{Op: "addfile", Path: path, Err: err}
	}
	name := segs[len(segs)-1]
	if _, exists := parent.child(name); exists {
		return &fs.PathError{Op: "addfile", Path: path, Err: fs.ErrExist}
	}
	parent.add(&node{name: name, data: data})
	b.files++
	b.bytes = total
	return nil
}

// dir walks segs from the root, creating missing directories.
func (b *Builder) dir(segs []string) (*node, error) {
	cur := &b.root
	for i, seg := range segs {
		next, ok := cur.child(seg)
		if !ok {
			next = &node{name: seg, dir: true}
			cur.add(next)
		} else if !next.dir {
			return nil, fmt.Errorf("%s is a file: %w", strings.Join(segs[:i+1], "/"), fs.ErrExist)
		}
		cur = next
	}
	return cur, nil
}

func (b *Builder) maxFiles() int {
	switch {
	case b.cfg.maxFiles == 0:
		return DefaultMaxFiles
	case b.cfg.maxFiles < 0:
		return 0
	default:
		return b.cfg.maxFiles
	}
}

// builderSegments normalizes path and validates each name. The root cannot
// be added.
func builderSegments(path string) ([]string, error) {
	p := NormalizePath(path)
	if p == "." {
		return nil, fs.ErrInvalid
	}
	segs := strings.Split(p, "/")
	if len(segs) > tree.MaxDepth {
		return nil, fmt.Errorf("%w: deeper than %d levels", ErrFormat, tree.MaxDepth)
	}
	for _, seg := range segs {
		if err := tree.ValidateName(seg); err != nil {
			return nil, err
		}
	}
	return segs, nil
}

// Files returns the number of files added so far.
func (b *Builder) Files() int {
	return b.files
}

// WriteTo encodes the archive and writes it to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	c, err := codec.New()
	if err != nil {
		return 0, err
	}
	defer c.Close()

	payload := make([]byte, 0, b.bytes)
	entries := layout(&b.root, &payload)

	entryBlob, err := tree.Encode(entries)
	if err != nil {
		return 0, err
	}
	entryCompressed, err := c.Compress(entryBlob, b.cfg.level)
	if err != nil {
		return 0, err
	}
	if len(entryBlob) > math.MaxUint32 || len(entryCompressed) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: entry blob of %d bytes", ErrSizeOverflow, len(entryBlob))
	}

	chunks, err := b.compressChunks(c, payload)
	if err != nil {
		return 0, err
	}
	offsets := make([]uint64, len(chunks))
	var chunkData uint64
	for i, chunk := range chunks {
		offsets[i] = chunkData
		chunkData += uint64(len(chunk))
	}
	indexBlob := chunkindex.Encode(offsets)
	indexCompressed, err := c.Compress(indexBlob, b.cfg.level)
	if err != nil {
		return 0, err
	}

	sizes := format.SizeInfo{
		EntryCompressed:        uint32(len(entryCompressed)), //nolint:gosec // checked above
		EntryUncompressed:      uint32(len(entryBlob)),       //nolint:gosec // checked above
		ChunkIndexCompressed:   uint64(len(indexCompressed)),
		ChunkIndexUncompressed: uint64(len(indexBlob)),
		ChunkDataCompressed:    chunkData,
	}
	b.log().Debug("archive layout",
		"files", b.files,
		"payload", len(payload),
		"chunks", len(chunks),
		"sizes", sizes,
	)

	cw := &file.CountingWriter{W: w}
	pre := binio.NewBuffer(format.PreambleSize)
	format.NewHeader().Encode(pre)
	sizes.Encode(pre)
	if _, err := cw.Write(pre.Bytes()); err != nil {
		return int64(cw.N), err //nolint:gosec // archive sizes fit in int64
	}

	h := checksum.New(b.cfg.checksum.table())
	body := io.MultiWriter(cw, h)
	for _, part := range append([][]byte{entryCompressed, indexCompressed}, chunks...) {
		if _, err := body.Write(part); err != nil {
			return int64(cw.N), err //nolint:gosec // archive sizes fit in int64
		}
	}

	foot := binio.NewBuffer(format.FooterSize)
	format.EncodeFooter(foot, h.Sum64())
	if _, err := cw.Write(foot.Bytes()); err != nil {
		return int64(cw.N), err //nolint:gosec // archive sizes fit in int64
	}
	return int64(cw.N), nil //nolint:gosec // archive sizes fit in int64
}

// layout converts the node tree to entries, appending file content to
// payload in depth-first, name-sorted order.
func layout(n *node, payload *[]byte) []Entry {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	slices.Sort(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		c := n.children[name]
		e := Entry{Name: name}
		if c.dir {
			e.Children = layout(c, payload)
		} else {
			e.DataOffset = uint64(len(*payload))
			e.DataSize = uint64(len(c.data))
			*payload = append(*payload, c.data...)
		}
		entries = append(entries, e)
	}
	return entries
}

// compressChunks splits payload into ChunkSize pieces, zero-padding the
// last, and compresses them concurrently. An empty payload yields a single
// zero chunk.
func (b *Builder) compressChunks(c *codec.Codec, payload []byte) ([][]byte, error) {
	n := max(1, (len(payload)+ChunkSize-1)/ChunkSize)
	out := make([][]byte, n)

	workers := b.cfg.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i := range n {
		eg.Go(func() error {
			lo := i * ChunkSize
			hi := min(lo+ChunkSize, len(payload))
			raw := payload[lo:hi]
			if len(raw) < ChunkSize {
				padded := make([]byte, ChunkSize)
				copy(padded, raw)
				raw = padded
			}
			compressed, err := c.Compress(raw, b.cfg.level)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			out[i] = compressed
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create builds an archive from the contents of dir and writes it to w.
//
// Create walks dir recursively. Regular files and directories, including
// empty ones, are added. Symbolic links and other special files are
// skipped, as are empty files, which the format cannot represent.
//
// The context can be used for cancellation of long-running archive creation.
func Create(ctx context.Context, dir string, w io.Writer, opts ...CreateOption) error {
	b := NewBuilder(opts...)
	if err := b.AddTree(ctx, dir); err != nil {
		return err
	}
	_, err := b.WriteTo(w)
	return err
}

// CreateFile builds an archive from dir and writes it atomically to dest.
// Parent directories of dest are created as needed.
func CreateFile(ctx context.Context, dir, dest string, opts ...CreateOption) error {
	b := NewBuilder(opts...)
	if err := b.AddTree(ctx, dir); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	return file.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		_, err := b.WriteTo(w)
		return err
	})
}

// AddTree adds the contents of dir to the Builder.
func (b *Builder) AddTree(ctx context.Context, dir string) error {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	b.log().Info("adding directory", "dir", dir)
	err = fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		switch {
		case d.IsDir():
			return b.AddDir(path)
		case d.Type()&fs.ModeSymlink != 0:
			b.log().Debug("skipped symlink", "path", path)
			return nil
		case !d.Type().IsRegular():
			b.log().Debug("skipped special file", "path", path, "type", d.Type().String())
			return nil
		}
		return b.addFromRoot(root, path)
	})
	if err != nil {
		return err
	}
	b.log().Info("directory added", "dir", dir, "files", b.files, "bytes", b.bytes)
	return nil
}

func (b *Builder) addFromRoot(root *os.Root, path string) error {
	data, err := platform.ReadRegular(root, filepath.FromSlash(path))
	switch {
	case errors.Is(err, platform.ErrSymlink):
		b.log().Debug("skipped symlink", "path", path)
		return nil
	case err != nil:
		return err
	case len(data) == 0:
		b.log().Debug("skipped empty file", "path", path)
		return nil
	}
	return b.AddFile(path, data)
}
