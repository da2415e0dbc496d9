package peac

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pameecs/peac/cache"
	"github.com/pameecs/peac/internal/testutil"
	"github.com/pameecs/peac/pool"
)

func TestClipBoundaries(t *testing.T) {
	t.Parallel()

	// One file per interesting offset/size pair, laid out back to back by
	// name so each lands at a known offset.
	sizes := []int{1, 2047, 2048, 2049, 4095, 4096, 4097, 6000}
	files := make(map[string][]byte, len(sizes))
	for i, n := range sizes {
		files[fmt.Sprintf("f%02d", i)] = testutil.Payload(uint64(100+i), n)
	}
	a := openArchive(t, buildArchive(t, files))

	var offset uint64
	for i, n := range sizes {
		name := fmt.Sprintf("f%02d", i)
		e, err := a.Entry(name)
		require.NoError(t, err)
		assert.Equal(t, offset, e.DataOffset, name)
		offset += uint64(n)

		got, err := a.ReadFile(name)
		require.NoError(t, err, name)
		assert.Equal(t, files[name], got, name)
	}
}

func TestAsyncReadsInterleave(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	a := openArchive(t, buildArchive(t, files), WithWorkers(2))

	pending := make(map[string]*Pending)
	for name, data := range files {
		if data != nil {
			pending[name] = a.ReadFileAsync(name)
		}
	}
	for name, p := range pending {
		got, err := p.Await(t.Context())
		require.NoError(t, err, name)
		assert.Equal(t, files[name], got, name)
	}
}

func TestAsyncNotFoundResolvesImmediately(t *testing.T) {
	t.Parallel()

	a := openArchive(t, buildArchive(t, sampleFiles()))
	p := a.ReadFileAsync("missing")
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("pending read for a missing file should already be resolved")
	}
	_, err := p.Wait()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSingleWorkerPool(t *testing.T) {
	t.Parallel()

	workers := pool.New(1)
	t.Cleanup(func() { workers.Close() })

	files := sampleFiles()
	a := openArchive(t, buildArchive(t, files), WithPool(workers))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	got, err := a.ReadFileAsync("img/icons/deep/b/c.bin").Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, files["img/icons/deep/b/c.bin"], got)
}

func TestConcurrentReadsSharedPoolAndCache(t *testing.T) {
	t.Parallel()

	workers := pool.New(4)
	t.Cleanup(func() { workers.Close() })
	chunks, err := cache.NewARC(64)
	require.NoError(t, err)

	filesA := sampleFiles()
	filesB := map[string][]byte{
		"README":       []byte("a different readme"),
		"css/main.css": testutil.Payload(42, 7000),
	}
	a := openArchive(t, buildArchive(t, filesA), WithPool(workers), WithChunkCache(chunks))
	b := openArchive(t, buildArchive(t, filesB), WithPool(workers), WithChunkCache(chunks))

	type job struct {
		archive *Archive
		name    string
		want    []byte
	}
	var jobs []job
	for name, data := range filesA {
		if data != nil {
			jobs = append(jobs, job{a, name, data})
		}
	}
	for name, data := range filesB {
		jobs = append(jobs, job{b, name, data})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32*len(jobs))
	for round := range 32 {
		for i, j := range jobs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := j.archive.ReadFile(j.name)
				if err != nil {
					errs <- err
					return
				}
				if string(got) != string(j.want) {
					errs <- fmt.Errorf("round %d job %d: %s content mismatch", round, i, j.name)
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Positive(t, chunks.Len())
}

func TestChunkCacheServesRepeatReads(t *testing.T) {
	t.Parallel()

	chunks, err := cache.NewARC(cache.DefaultEntries)
	require.NoError(t, err)
	files := sampleFiles()
	a := openArchive(t, buildArchive(t, files), WithChunkCache(chunks))

	_, err = a.ReadFile("img/icons/deep/b/c.bin")
	require.NoError(t, err)
	n := chunks.Len()
	assert.Positive(t, n)

	got, err := a.ReadFile("img/icons/deep/b/c.bin")
	require.NoError(t, err)
	assert.Equal(t, files["img/icons/deep/b/c.bin"], got)
	assert.Equal(t, n, chunks.Len(), "repeat read should not add chunks")
}

func TestReadAfterPoolClosed(t *testing.T) {
	t.Parallel()

	workers := pool.New(2)
	a := openArchive(t, buildArchive(t, sampleFiles()), WithPool(workers))
	require.NoError(t, workers.Close())

	for _, read := range []func() ([]byte, error){
		func() ([]byte, error) { return a.ReadFile("README") },
		func() ([]byte, error) { return a.ReadFileAsync("js/app.js").Wait() },
	} {
		_, err := read()
		require.ErrorIs(t, err, ErrClosed)
		require.ErrorIs(t, err, pool.ErrClosed)
		var pe *fs.PathError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "read", pe.Op)
	}
}
