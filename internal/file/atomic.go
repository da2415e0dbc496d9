// Package file provides file-writing helpers shared by archive creation,
// extraction, and registry pulls.
package file

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteAtomic streams the output of write to a temp file in the target's
// directory, then renames it over target. On any failure the temp file is
// removed and target is left untouched.
func WriteAtomic(target string, perm fs.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".peac-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return &fs.PathError{Op: "write", Path: target, Err: errors.New("is a directory")}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return err
	}
	success = true
	return nil
}

// WriteFileAtomic writes data to target atomically.
func WriteFileAtomic(target string, data []byte, perm fs.FileMode) error {
	return WriteAtomic(target, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
