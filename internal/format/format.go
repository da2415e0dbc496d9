// Package format defines the fixed-layout records of the archive file:
// the header, the size information block, and the footer.
//
// Layout:
//
//	[Header 8B][SizeInfo 32B][entry blob][chunk index blob][chunk data][Footer 8B]
//
// All integers are little-endian.
package format

import (
	"fmt"
	"log/slog"

	"github.com/pameecs/peac/internal/binio"
	"github.com/pameecs/peac/internal/peactype"
	"github.com/pameecs/peac/internal/sizing"
)

const (
	// HeaderSize is the encoded size of Header.
	HeaderSize = 8

	// SizeInfoSize is the encoded size of SizeInfo.
	SizeInfoSize = 32

	// FooterSize is the encoded size of the trailing checksum.
	FooterSize = 8

	// PreambleSize is the number of bytes before the entry blob.
	PreambleSize = HeaderSize + SizeInfoSize
)

// Magic identifies an archive file.
var Magic = [4]byte{'P', 'E', 'A', 'C'}

// Version is a major.minor.patch format version.
type Version struct {
	Major, Minor, Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CurrentVersion is the version written by the builder.
var CurrentVersion = Version{1, 0, 0}

// SupportedVersions lists every version the loader accepts.
var SupportedVersions = []Version{
	{1, 0, 0},
}

// IsSupported reports whether v is in SupportedVersions.
func IsSupported(v Version) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// Header is the first record of an archive.
type Header struct {
	Magic    [4]byte
	Version  Version
	Reserved uint8
}

// NewHeader returns a header for the current format version.
func NewHeader() Header {
	return Header{Magic: Magic, Version: CurrentVersion}
}

// DecodeHeader reads a Header from the start of buf. It does not validate it.
func DecodeHeader(buf []byte) (Header, error) {
	var h Header
	c := binio.NewCursor(buf)
	magic, err := c.Bytes(len(h.Magic))
	if err != nil {
		return h, err
	}
	copy(h.Magic[:], magic)
	if h.Version.Major, err = c.U8(); err != nil {
		return h, err
	}
	if h.Version.Minor, err = c.U8(); err != nil {
		return h, err
	}
	if h.Version.Patch, err = c.U8(); err != nil {
		return h, err
	}
	if h.Reserved, err = c.U8(); err != nil {
		return h, err
	}
	return h, nil
}

// ValidateMagic checks the leading four bytes of buf before anything else
// is decoded.
func ValidateMagic(buf []byte) error {
	if len(buf) < len(Magic) {
		return fmt.Errorf("%w: file too short for magic (%d bytes)", peactype.ErrFormat, len(buf))
	}
	if [4]byte(buf[:4]) != Magic {
		return fmt.Errorf("%w: invalid magic %q", peactype.ErrFormat, buf[:4])
	}
	return nil
}

// Validate checks the magic and version.
func (h Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: invalid magic %q", peactype.ErrFormat, h.Magic[:])
	}
	if !IsSupported(h.Version) {
		return fmt.Errorf("%w: unsupported version %s", peactype.ErrFormat, h.Version)
	}
	return nil
}

// Encode appends the header to w.
func (h Header) Encode(w *binio.Buffer) {
	w.Write(h.Magic[:])
	w.U8(h.Version.Major)
	w.U8(h.Version.Minor)
	w.U8(h.Version.Patch)
	w.U8(h.Reserved)
}

// LogValue implements slog.LogValuer.
func (h Header) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("magic", string(h.Magic[:])),
		slog.String("version", h.Version.String()),
		slog.Int("reserved", int(h.Reserved)),
	)
}

// SizeInfo records the byte counts of the three compressed regions.
type SizeInfo struct {
	EntryCompressed        uint32
	EntryUncompressed      uint32
	ChunkIndexCompressed   uint64
	ChunkIndexUncompressed uint64
	ChunkDataCompressed    uint64
}

// DecodeSizeInfo reads a SizeInfo from the start of buf.
func DecodeSizeInfo(buf []byte) (SizeInfo, error) {
	var s SizeInfo
	c := binio.NewCursor(buf)
	var err error
	if s.EntryCompressed, err = c.U32(); err != nil {
		return s, err
	}
	if s.EntryUncompressed, err = c.U32(); err != nil {
		return s, err
	}
	if s.ChunkIndexCompressed, err = c.U64(); err != nil {
		return s, err
	}
	if s.ChunkIndexUncompressed, err = c.U64(); err != nil {
		return s, err
	}
	if s.ChunkDataCompressed, err = c.U64(); err != nil {
		return s, err
	}
	return s, nil
}

// Encode appends the size information to w.
func (s SizeInfo) Encode(w *binio.Buffer) {
	w.U32(s.EntryCompressed)
	w.U32(s.EntryUncompressed)
	w.U64(s.ChunkIndexCompressed)
	w.U64(s.ChunkIndexUncompressed)
	w.U64(s.ChunkDataCompressed)
}

// BodySize returns the total size of the three compressed regions.
func (s SizeInfo) BodySize() (uint64, error) {
	total, ok := sizing.SumUint64(uint64(s.EntryCompressed), s.ChunkIndexCompressed, s.ChunkDataCompressed)
	if !ok {
		return 0, fmt.Errorf("%w: body size overflows", peactype.ErrFormat)
	}
	return total, nil
}

// ChunkDataStart returns the absolute file offset of the chunk-data region.
func (s SizeInfo) ChunkDataStart() (uint64, error) {
	start, ok := sizing.SumUint64(PreambleSize, uint64(s.EntryCompressed), s.ChunkIndexCompressed)
	if !ok {
		return 0, fmt.Errorf("%w: chunk data offset overflows", peactype.ErrFormat)
	}
	return start, nil
}

// LogValue implements slog.LogValuer.
func (s SizeInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("entry_compressed", uint64(s.EntryCompressed)),
		slog.Uint64("entry_uncompressed", uint64(s.EntryUncompressed)),
		slog.Uint64("chunk_index_compressed", s.ChunkIndexCompressed),
		slog.Uint64("chunk_index_uncompressed", s.ChunkIndexUncompressed),
		slog.Uint64("chunk_data_compressed", s.ChunkDataCompressed),
	)
}

// DecodeFooter reads the trailing checksum.
func DecodeFooter(buf []byte) (uint64, error) {
	return binio.NewCursor(buf).U64()
}

// EncodeFooter appends the trailing checksum to w.
func EncodeFooter(w *binio.Buffer, sum uint64) {
	w.U64(sum)
}
