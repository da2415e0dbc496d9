package testutil

import (
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/pameecs/peac/internal/binio"
	"github.com/pameecs/peac/internal/checksum"
	"github.com/pameecs/peac/internal/chunkindex"
	"github.com/pameecs/peac/internal/format"
	"github.com/pameecs/peac/internal/peactype"
	"github.com/pameecs/peac/internal/tree"
)

// Raw describes an archive assembled field by field, so tests can produce
// layouts a Builder never would.
type Raw struct {
	// Entries is encoded as the entry blob unless EntryBlob is set.
	Entries   []peactype.Entry
	EntryBlob []byte

	// Offsets is encoded as the chunk index unless IndexBlob is set. When
	// both are nil, offsets are derived from Chunks.
	Offsets   []uint64
	IndexBlob []byte

	// Chunks are already-compressed chunk bodies.
	Chunks [][]byte

	// Header defaults to format.NewHeader().
	Header *format.Header

	// Table defaults to checksum.ECMA.
	Table *checksum.Table
}

// Compress returns src as one zstd frame.
func Compress(t testing.TB, src []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil)
}

// Chunk zero-pads raw to ChunkSize and compresses it.
func Chunk(t testing.TB, raw []byte) []byte {
	t.Helper()
	if len(raw) > peactype.ChunkSize {
		t.Fatalf("chunk of %d bytes exceeds %d", len(raw), peactype.ChunkSize)
	}
	padded := make([]byte, peactype.ChunkSize)
	copy(padded, raw)
	return Compress(t, padded)
}

// Chunks splits payload into compressed chunks.
func Chunks(t testing.TB, payload []byte) [][]byte {
	t.Helper()
	var out [][]byte
	for lo := 0; lo < len(payload) || lo == 0; lo += peactype.ChunkSize {
		out = append(out, Chunk(t, payload[lo:min(lo+peactype.ChunkSize, len(payload))]))
	}
	return out
}

// Bytes encodes the archive.
func (r Raw) Bytes(t testing.TB) []byte {
	t.Helper()

	entryBlob := r.EntryBlob
	if entryBlob == nil {
		var err error
		entryBlob, err = tree.Encode(r.Entries)
		if err != nil {
			t.Fatalf("encode entries: %v", err)
		}
	}

	indexBlob := r.IndexBlob
	if indexBlob == nil {
		offsets := r.Offsets
		if offsets == nil {
			var off uint64
			for _, c := range r.Chunks {
				offsets = append(offsets, off)
				off += uint64(len(c))
			}
		}
		indexBlob = chunkindex.Encode(offsets)
	}

	var chunkData []byte
	for _, c := range r.Chunks {
		chunkData = append(chunkData, c...)
	}

	entryCompressed := Compress(t, entryBlob)
	indexCompressed := Compress(t, indexBlob)

	header := format.NewHeader()
	if r.Header != nil {
		header = *r.Header
	}
	table := r.Table
	if table == nil {
		table = checksum.ECMA
	}

	w := binio.NewBuffer(format.PreambleSize + len(entryCompressed) + len(indexCompressed) + len(chunkData) + format.FooterSize)
	header.Encode(w)
	format.SizeInfo{
		EntryCompressed:        uint32(len(entryCompressed)), //nolint:gosec // test sizes are small
		EntryUncompressed:      uint32(len(entryBlob)),       //nolint:gosec // test sizes are small
		ChunkIndexCompressed:   uint64(len(indexCompressed)),
		ChunkIndexUncompressed: uint64(len(indexBlob)),
		ChunkDataCompressed:    uint64(len(chunkData)),
	}.Encode(w)
	bodyStart := w.Len()
	w.Write(entryCompressed)
	w.Write(indexCompressed)
	w.Write(chunkData)
	format.EncodeFooter(w, table.Checksum(w.Bytes()[bodyStart:]))
	return w.Bytes()
}
