//go:build unix

package mapped

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	// Chunk reads jump around the file.
	_ = unix.Madvise(data, unix.MADV_RANDOM) //nolint:errcheck // advisory only
	return data, unix.Munmap, nil
}
