// Package platform isolates the OS-specific parts of reading a source tree.
package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrSymlink is returned when a source path is a symbolic link.
	ErrSymlink = errors.New("symbolic links not supported")

	// ErrNotRegular is returned when a source path is a device, pipe,
	// socket, or directory.
	ErrNotRegular = errors.New("not a regular file")
)

// ReadRegular returns the content of the regular file name inside root.
// Symlinks are never followed. The file is read up to the size reported
// when it was opened; a file that shrinks while being read is an error.
func ReadRegular(root *os.Root, name string) ([]byte, error) {
	f, err := openNoFollow(root, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotRegular, name, info.Mode().Type())
	}
	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
