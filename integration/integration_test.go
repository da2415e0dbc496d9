//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pameecs/peac"
	"github.com/pameecs/peac/internal/testutil"
	"github.com/pameecs/peac/registry"
)

func sampleFiles() map[string][]byte {
	return map[string][]byte{
		"index.html":       []byte("<html></html>\n"),
		"css/site.css":     []byte("body { margin: 0 }\n"),
		"img/logo.bin":     testutil.Payload(1, 9000),
		"js/app/main.js":   []byte("console.log('hi')\n"),
		"js/app/vendor.js": testutil.Payload(2, 30000),
	}
}

func TestPushPull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	files := sampleFiles()
	src := packTree(t, files)
	ref := testRef(addr, t, "v1")

	c := newTestClient()
	desc, err := c.Push(ctx, ref, src, registry.WithTitle("site.peac"), registry.WithTags("latest"))
	require.NoError(t, err)
	assert.NotEmpty(t, desc.Digest)

	for _, tag := range []string{"v1", "latest"} {
		dest := filepath.Join(t.TempDir(), "pulled.peac")
		a, err := c.Pull(ctx, testRef(addr, t, tag), dest)
		require.NoError(t, err, tag)
		assert.Equal(t, src.Len(), a.Len())
		assertFilesMatch(t, a, files)

		want, err := src.Digest()
		require.NoError(t, err)
		got, err := a.Digest()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		require.NoError(t, a.Close())
	}
}

func TestPushIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	src := packTree(t, sampleFiles())
	ref := testRef(addr, t, "v1")

	c := newTestClient()
	first, err := c.Push(ctx, ref, src)
	require.NoError(t, err)
	second, err := c.Push(ctx, ref, src)
	require.NoError(t, err)
	assert.Equal(t, first.Digest, second.Digest)
}

func TestPullMissing(t *testing.T) {
	t.Parallel()

	addr := getRegistry(t)
	dest := filepath.Join(t.TempDir(), "missing.peac")

	_, err := newTestClient().Pull(context.Background(), testRef(addr, t, "nope"), dest)
	require.ErrorIs(t, err, registry.ErrNotFound)
	_, statErr := os.Stat(dest)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestPullLegacyChecksum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	files := sampleFiles()

	dir := testutil.WriteTree(t, files)
	path := filepath.Join(t.TempDir(), "legacy.peac")
	require.NoError(t, peac.CreateFile(ctx, dir, path, peac.CreateWithChecksum(peac.ChecksumECMAMSB)))
	src, err := peac.Open(path, peac.WithChecksum(peac.ChecksumECMAMSB))
	require.NoError(t, err)
	defer src.Close()

	ref := testRef(addr, t, "v1")
	c := newTestClient()
	_, err = c.Push(ctx, ref, src)
	require.NoError(t, err)

	_, err = c.Pull(ctx, ref, filepath.Join(t.TempDir(), "default.peac"))
	require.ErrorIs(t, err, peac.ErrIntegrity)

	a, err := c.Pull(ctx, ref, filepath.Join(t.TempDir(), "legacy.peac"), peac.WithChecksum(peac.ChecksumECMAMSB))
	require.NoError(t, err)
	defer a.Close()
	assertFilesMatch(t, a, files)
}
