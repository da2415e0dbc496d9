// Package chunkindex decodes the table locating compressed chunks inside the
// chunk-data region.
//
// On disk the table is a flat array of uint64 start offsets, the first of
// which is zero. The end of the last chunk is not stored; it is the declared
// size of the chunk-data region.
package chunkindex

import (
	"encoding/binary"
	"fmt"

	"github.com/pameecs/peac/internal/binio"
	"github.com/pameecs/peac/internal/peactype"
)

// Range locates one compressed chunk.
type Range = peactype.ChunkRange

const offsetSize = 8

// Decode converts a decompressed offset table into chunk ranges.
func Decode(buf []byte, totalCompressed uint64) ([]Range, error) {
	if len(buf)%offsetSize != 0 {
		return nil, fmt.Errorf("%w: chunk index size %d is not a multiple of %d", peactype.ErrFormat, len(buf), offsetSize)
	}
	count := len(buf) / offsetSize
	if count == 0 {
		return nil, fmt.Errorf("%w: no data chunk ranges", peactype.ErrFormat)
	}

	offsets := make([]uint64, count, count+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(buf[i*offsetSize:])
	}
	if offsets[0] != 0 {
		return nil, fmt.Errorf("%w: first chunk offset is %d, must be 0", peactype.ErrFormat, offsets[0])
	}
	offsets = append(offsets, totalCompressed)

	ranges := make([]Range, 0, count)
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: chunk offset %d at index %d precedes %d", peactype.ErrFormat, offsets[i], i, offsets[i-1])
		}
		ranges = append(ranges, Range{Offset: offsets[i-1], Length: offsets[i] - offsets[i-1]})
	}
	return ranges, nil
}

// Encode serializes chunk start offsets.
func Encode(offsets []uint64) []byte {
	w := binio.NewBuffer(len(offsets) * offsetSize)
	for _, off := range offsets {
		w.U64(off)
	}
	return w.Bytes()
}
