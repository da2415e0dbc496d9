package peactype

// ChunkSize is the decompressed size in bytes of every logical chunk.
const ChunkSize = 2048

// Entry is one node of the archive namespace.
//
// DataSize is zero for directories. For files, DataOffset is the position of
// the first byte within the concatenation of all decompressed chunks.
type Entry struct {
	Name       string
	DataSize   uint64
	DataOffset uint64
	Children   []Entry
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.DataSize == 0
}

// Clone returns a deep copy of the entry and its descendants.
func (e *Entry) Clone() Entry {
	out := Entry{
		Name:       e.Name,
		DataSize:   e.DataSize,
		DataOffset: e.DataOffset,
	}
	if len(e.Children) > 0 {
		out.Children = make([]Entry, len(e.Children))
		for i := range e.Children {
			out.Children[i] = e.Children[i].Clone()
		}
	}
	return out
}

// ChunkRange locates one compressed chunk inside the chunk-data region.
type ChunkRange struct {
	Offset uint64
	Length uint64
}
