package peactype

import (
	"errors"
	"io/fs"
)

// Sentinel errors for archive operations.
var (
	// ErrFormat is returned when the archive layout is malformed: bad magic,
	// unsupported version, or inconsistent metadata.
	ErrFormat = errors.New("peac: invalid archive format")

	// ErrIntegrity is returned when the footer checksum does not match the body.
	ErrIntegrity = errors.New("peac: checksum mismatch")

	// ErrBounds is returned when a read falls outside the mapped file or a
	// declared chunk range.
	ErrBounds = errors.New("peac: read out of bounds")

	// ErrCodec is returned when compression or decompression fails.
	ErrCodec = errors.New("peac: codec failure")

	// ErrNotFound is returned when a path does not resolve to an entry.
	// It matches fs.ErrNotExist.
	ErrNotFound = notFoundError{}

	// ErrIsDirectory is returned when file content is requested for a directory.
	ErrIsDirectory = errors.New("peac: is a directory")

	// ErrClosed is returned when an archive or pool is used after Close.
	ErrClosed = errors.New("peac: closed")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("peac: size overflow")
)

type notFoundError struct{}

func (notFoundError) Error() string { return "peac: entry not found" }

func (notFoundError) Is(target error) bool { return target == fs.ErrNotExist }
