// Package testutil provides helpers for building source trees and
// hand-crafted archives in tests.
package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// Payload returns n deterministic pseudo-random bytes for seed.
func Payload(seed uint64, n int) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Uint32())
	}
	return out
}

// WriteTemp writes data to a new file in a test temp dir and returns its path.
func WriteTemp(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.peac")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp archive: %v", err)
	}
	return path
}

// WriteTree creates files (slash-separated relative paths) under a new temp
// dir and returns the dir. A nil value creates a directory.
func WriteTree(t testing.TB, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if data == nil {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
