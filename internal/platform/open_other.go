//go:build !unix

package platform

import (
	"io/fs"
	"os"
)

// openNoFollow checks name with Lstat before opening it. The check and the
// open are not atomic.
func openNoFollow(root *os.Root, name string) (*os.File, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	return root.Open(name)
}
