// Package tree decodes and encodes the serialized entry namespace.
//
// The decompressed entry blob is a depth-first serialization. Each level is a
// uint16 sibling count followed by that many records:
//
//	dataSize u64 | dataOffset u64 | nameLength u16 | name | <children level>
//
// While decoding, a parallel Index maps each name to its position among its
// siblings so path lookups never scan entry lists.
package tree

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pameecs/peac/internal/binio"
	"github.com/pameecs/peac/internal/peactype"
)

// MaxDepth bounds the nesting of directories.
const MaxDepth = 256

// minRecordSize is the encoded size of a record with an empty name and no children.
const minRecordSize = 8 + 8 + 2 + 2

// Entry is the node type stored in a Tree.
type Entry = peactype.Entry

// Index maps a name to its position within one sibling list.
type Index map[string]IndexNode

// IndexNode locates one entry and indexes its children.
type IndexNode struct {
	Pos      int
	Children Index
}

// Tree is a decoded namespace.
type Tree struct {
	Root  []Entry
	Index Index
}

// Decode parses a decompressed entry blob.
func Decode(buf []byte) (*Tree, error) {
	d := decoder{c: binio.NewCursor(buf)}
	root, idx, err := d.level(0)
	if err != nil {
		return nil, err
	}
	if n := d.c.Remaining(); n != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after entry tree", peactype.ErrFormat, n)
	}
	return &Tree{Root: root, Index: idx}, nil
}

type decoder struct {
	c *binio.Cursor
}

func (d *decoder) level(depth int) ([]Entry, Index, error) {
	if depth > MaxDepth {
		return nil, nil, fmt.Errorf("%w: entry tree deeper than %d levels", peactype.ErrFormat, MaxDepth)
	}
	count, err := d.c.U16()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sibling count: %w", peactype.ErrFormat, err)
	}
	if count == 0 {
		return nil, nil, nil
	}
	// Never trust count for allocation beyond what the buffer could hold.
	capacity := min(int(count), d.c.Remaining()/minRecordSize+1)
	entries := make([]Entry, 0, capacity)
	idx := make(Index, capacity)

	for i := range int(count) {
		e, err := d.record()
		if err != nil {
			return nil, nil, err
		}
		if _, dup := idx[e.Name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate entry name %q", peactype.ErrFormat, e.Name)
		}
		children, childIdx, err := d.level(depth + 1)
		if err != nil {
			return nil, nil, err
		}
		if !e.IsDir() && len(children) > 0 {
			return nil, nil, fmt.Errorf("%w: file %q has children", peactype.ErrFormat, e.Name)
		}
		e.Children = children
		entries = append(entries, e)
		idx[e.Name] = IndexNode{Pos: i, Children: childIdx}
	}
	return entries, idx, nil
}

func (d *decoder) record() (Entry, error) {
	var e Entry
	var err error
	if e.DataSize, err = d.c.U64(); err != nil {
		return e, fmt.Errorf("%w: data size: %w", peactype.ErrFormat, err)
	}
	if e.DataOffset, err = d.c.U64(); err != nil {
		return e, fmt.Errorf("%w: data offset: %w", peactype.ErrFormat, err)
	}
	nameLen, err := d.c.U16()
	if err != nil {
		return e, fmt.Errorf("%w: name length: %w", peactype.ErrFormat, err)
	}
	name, err := d.c.Bytes(int(nameLen))
	if err != nil {
		return e, fmt.Errorf("%w: name: %w", peactype.ErrFormat, err)
	}
	e.Name = string(name)
	if err := ValidateName(e.Name); err != nil {
		return e, err
	}
	return e, nil
}

// ValidateName reports whether name can be stored as a single path segment.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: invalid entry name %q", peactype.ErrFormat, name)
	case len(name) > math.MaxUint16:
		return fmt.Errorf("%w: entry name longer than %d bytes", peactype.ErrFormat, math.MaxUint16)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%w: entry name %q contains a slash", peactype.ErrFormat, name)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: entry name %q is not UTF-8", peactype.ErrFormat, name)
	}
	return nil
}

// Lookup converts path segments into sibling positions.
func (t *Tree) Lookup(segments []string) ([]int, bool) {
	positions := make([]int, 0, len(segments))
	idx := t.Index
	for _, seg := range segments {
		node, ok := idx[seg]
		if !ok {
			return nil, false
		}
		positions = append(positions, node.Pos)
		idx = node.Children
	}
	return positions, true
}

// Resolve returns the entry at segments. The returned pointer aliases the
// tree and must not be modified. An empty segment list returns (nil, true),
// meaning the root.
func (t *Tree) Resolve(segments []string) (*Entry, bool) {
	positions, ok := t.Lookup(segments)
	if !ok {
		return nil, false
	}
	var cur *Entry
	level := t.Root
	for _, pos := range positions {
		if pos >= len(level) {
			return nil, false
		}
		cur = &level[pos]
		level = cur.Children
	}
	return cur, true
}

// Encode serializes root as an entry blob.
func Encode(root []Entry) ([]byte, error) {
	w := binio.NewBuffer(256)
	if err := encodeLevel(w, root, 0); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func encodeLevel(w *binio.Buffer, entries []Entry, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: entry tree deeper than %d levels", peactype.ErrFormat, MaxDepth)
	}
	if len(entries) > math.MaxUint16 {
		return fmt.Errorf("%w: %d siblings exceed %d", peactype.ErrFormat, len(entries), math.MaxUint16)
	}
	w.U16(uint16(len(entries)))
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		if err := ValidateName(e.Name); err != nil {
			return err
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate entry name %q", peactype.ErrFormat, e.Name)
		}
		seen[e.Name] = struct{}{}
		if !e.IsDir() && len(e.Children) > 0 {
			return fmt.Errorf("%w: file %q has children", peactype.ErrFormat, e.Name)
		}
		w.U64(e.DataSize)
		w.U64(e.DataOffset)
		w.U16(uint16(len(e.Name)))
		w.Write([]byte(e.Name))
		if err := encodeLevel(w, e.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}
