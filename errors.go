package peac

import (
	"errors"

	"github.com/pameecs/peac/internal/peactype"
)

// Sentinel errors re-exported from internal/peactype.
var (
	// ErrFormat is returned when an archive is malformed: bad magic,
	// unsupported version, truncated regions, or inconsistent metadata.
	ErrFormat = peactype.ErrFormat

	// ErrIntegrity is returned when the footer checksum does not match.
	ErrIntegrity = peactype.ErrIntegrity

	// ErrBounds is returned when a read falls outside the file or the
	// chunk table.
	ErrBounds = peactype.ErrBounds

	// ErrCodec is returned when a chunk fails to decompress to its
	// expected size.
	ErrCodec = peactype.ErrCodec

	// ErrNotFound is returned when a path names no entry. It matches
	// fs.ErrNotExist.
	ErrNotFound = peactype.ErrNotFound

	// ErrIsDirectory is returned when content is requested for a directory.
	ErrIsDirectory = peactype.ErrIsDirectory

	// ErrClosed is returned by reads issued after Close.
	ErrClosed = peactype.ErrClosed

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = peactype.ErrSizeOverflow
)

// Sentinel errors specific to archive creation.
var (
	// ErrEmptyFile is returned when a zero-length file is added to a
	// Builder. The format encodes directories as entries with no data, so
	// empty files cannot be represented.
	ErrEmptyFile = errors.New("peac: empty file")

	// ErrTooManyFiles is returned when the file count exceeds the
	// configured limit.
	ErrTooManyFiles = errors.New("peac: too many files")
)
