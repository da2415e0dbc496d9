package peac

import (
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// File is an open archive file. It supports random access through ReadAt;
// each call decompresses only the chunks it overlaps.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
}

// Open implements fs.FS.
//
// Unlike the other Archive methods, Open, Stat, and ReadDir require names
// that satisfy fs.ValidPath.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotFound}
	}
	if e.IsDir() {
		return &openDir{name: name, entry: e}, nil
	}
	return &openFile{a: a, name: name, entry: e}, nil
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: ErrNotFound}
	}
	return newInfo(name, e), nil
}

// ReadDir implements fs.ReadDirFS.
//
// ReadDir returns directory entries for the named directory, sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotFound}
	}
	if !e.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
	}
	return dirEntries(e), nil
}

func dirEntries(e *Entry) []fs.DirEntry {
	out := make([]fs.DirEntry, 0, len(e.Children))
	for i := range e.Children {
		c := &e.Children[i]
		out = append(out, fs.FileInfoToDirEntry(newInfo(c.Name, c)))
	}
	slices.SortFunc(out, func(x, y fs.DirEntry) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return out
}

// info implements fs.FileInfo for an entry.
type info struct {
	name string
	size int64
	dir  bool
}

func newInfo(name string, e *Entry) *info {
	return &info{name: base(name), size: int64(e.DataSize), dir: e.IsDir()} //nolint:gosec // sizes above MaxInt64 cannot be read anyway
}

func (i *info) Name() string       { return i.name }
func (i *info) Size() int64        { return i.size }
func (i *info) ModTime() time.Time { return time.Time{} }
func (i *info) IsDir() bool        { return i.dir }
func (i *info) Sys() any           { return nil }

func (i *info) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

// openFile reads a file through the chunk engine.
type openFile struct {
	a      *Archive
	name   string
	entry  *Entry
	offset int64
	closed bool
}

func (f *openFile) Stat() (fs.FileInfo, error) {
	return newInfo(f.name, f.entry), nil
}

func (f *openFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (f *openFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrClosed}
	}
	if off < 0 {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrInvalid}
	}
	size := int64(f.entry.DataSize) //nolint:gosec // see newInfo
	if off >= size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), size-off)
	if want == 0 {
		return 0, nil
	}
	data, err := f.a.readRange(f.name, f.entry.DataOffset+uint64(off), uint64(want)).Wait()
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (f *openFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.offset + offset
	case io.SeekEnd:
		abs = int64(f.entry.DataSize) + offset //nolint:gosec // see newInfo
	default:
		return 0, &fs.PathError{Op: "seek", Path: f.name, Err: fs.ErrInvalid}
	}
	if abs < 0 {
		return 0, &fs.PathError{Op: "seek", Path: f.name, Err: fs.ErrInvalid}
	}
	f.offset = abs
	return abs, nil
}

func (f *openFile) Close() error {
	f.closed = true
	return nil
}

// openDir lists a directory.
type openDir struct {
	name    string
	entry   *Entry
	entries []fs.DirEntry
	pos     int
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return newInfo(d.name, d.entry), nil
}

func (d *openDir) Close() error {
	d.entries = nil
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		d.entries = dirEntries(d.entry)
	}
	rest := d.entries[d.pos:]
	if n <= 0 {
		d.pos = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.pos += n
	return rest[:n], nil
}
