package peac

import (
	"io/fs"
	"strings"
)

// NormalizePath converts a user-provided path to fs.ValidPath format.
//
// It performs the following transformations:
//   - Strips leading slashes: "/css/main.css" → "css/main.css"
//   - Strips trailing slashes: "css/" → "css"
//   - Collapses consecutive slashes: "css//main.css" → "css/main.css"
//   - Converts empty string to root: "" → "."
//   - Preserves root indicator: "/" → "."
//
// Paths containing "." or ".." elements are preserved and will not resolve
// to any entry.
func NormalizePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}

// segments splits a virtual path into name segments. The root yields an
// empty slice. ok is false for paths that can never resolve.
func segments(name string) (segs []string, ok bool) {
	p := NormalizePath(name)
	if p == "." {
		return nil, true
	}
	if !fs.ValidPath(p) {
		return nil, false
	}
	return strings.Split(p, "/"), true
}

// base returns the last element of a slash-separated path.
func base(name string) string {
	p := NormalizePath(name)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
