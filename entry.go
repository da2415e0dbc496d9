package peac

import (
	"github.com/pameecs/peac/internal/checksum"
	"github.com/pameecs/peac/internal/peactype"
)

// Re-export types from internal/peactype for public API.
type (
	// Entry is a node of the archive namespace. Entries with a zero
	// DataSize are directories; all others are files whose content is the
	// byte range [DataOffset, DataOffset+DataSize) of the uncompressed
	// payload stream.
	Entry = peactype.Entry

	// ChunkRange locates one compressed chunk within the chunk-data region.
	ChunkRange = peactype.ChunkRange
)

// ChunkSize is the uncompressed size of every chunk.
const ChunkSize = peactype.ChunkSize

// Checksum selects the CRC-64 variant used for the footer.
type Checksum uint8

const (
	// ChecksumECMA is the reflected CRC-64/ECMA-182 variant with zero
	// initial value and no final xor. It is the default.
	ChecksumECMA Checksum = iota

	// ChecksumECMAMSB is the MSB-first ECMA-182 variant with zero initial
	// value and no final xor, as written by older archive builders.
	ChecksumECMAMSB
)

// String returns the checksum variant name.
func (c Checksum) String() string {
	return c.table().Name()
}

func (c Checksum) table() *checksum.Table {
	if c == ChecksumECMAMSB {
		return checksum.ECMAMSB
	}
	return checksum.ECMA
}
