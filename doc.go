// Package peac reads and writes PEAC archives: read-only, single-file
// archives of a directory tree whose file contents are stored as one
// continuous stream split into fixed-size, independently zstd-compressed
// chunks.
//
// An archive is laid out as
//
//	header | size info | entry blob | chunk index | chunk data | footer
//
// where the footer is a CRC-64 over the three compressed blobs. Opening an
// archive maps the file, verifies the checksum, and decodes the entry tree
// and chunk index into memory. File content is decompressed on demand, one
// chunk per task on a worker pool, so a small read touches only the chunks
// it overlaps.
//
// # Quick Start
//
// Build an archive from a directory:
//
//	err := peac.CreateFile(ctx, "./site", "site.peac")
//
// Open it and read a file:
//
//	a, err := peac.Open("site.peac")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	content, err := a.ReadFile("css/main.css")
//
// Reads can also be issued asynchronously and awaited later:
//
//	p := a.ReadFileAsync("img/logo.png")
//	// ...
//	content, err := p.Wait()
//
// # Sharing Workers
//
// By default each Archive owns a small worker pool. Applications that open
// many archives can share one pool and one chunk cache:
//
//	workers := pool.New(8)
//	chunks, _ := cache.NewARC(cache.DefaultEntries)
//	a, err := peac.Open("site.peac", peac.WithPool(workers), peac.WithChunkCache(chunks))
//
// Archive implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS.
package peac
