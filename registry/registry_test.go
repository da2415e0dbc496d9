package registry

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/pameecs/peac"
	"github.com/pameecs/peac/internal/testutil"
)

func testArchive(t *testing.T) (*peac.Archive, []byte) {
	t.Helper()
	b := peac.NewBuilder()
	require.NoError(t, b.AddFile("index.html", []byte("<html>hi</html>")))
	require.NoError(t, b.AddFile("assets/app.js", testutil.Payload(1, 5000)))
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	a, err := peac.Open(testutil.WriteTemp(t, buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, buf.Bytes()
}

func TestPushPullRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.New()
	a, raw := testArchive(t)

	desc, err := Push(ctx, store, a, "v1", WithTitle("site.peac"), WithTags("latest"),
		WithAnnotations(map[string]string{"org.example": "yes"}))
	require.NoError(t, err)
	assert.Equal(t, ocispec.MediaTypeImageManifest, desc.MediaType)
	assert.Equal(t, ArtifactType, desc.ArtifactType)

	for _, tag := range []string{"v1", "latest"} {
		resolved, err := store.Resolve(ctx, tag)
		require.NoError(t, err)
		assert.Equal(t, desc.Digest, resolved.Digest)
	}

	_, layer, err := Resolve(ctx, store, "v1")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeArchive, layer.MediaType)
	assert.Equal(t, "site.peac", layer.Annotations[ocispec.AnnotationTitle])
	assert.Equal(t, "1.0.0", layer.Annotations[AnnotationVersion])
	assert.Equal(t, "3", layer.Annotations[AnnotationEntries])

	dest := filepath.Join(t.TempDir(), "pulled", "site.peac")
	pulled, err := Pull(ctx, store, "latest", dest)
	require.NoError(t, err)
	assert.Equal(t, layer.Digest, pulled.Digest)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	b, err := peac.Open(dest)
	require.NoError(t, err)
	defer b.Close()
	content, err := b.ReadFile("assets/app.js")
	require.NoError(t, err)
	assert.Equal(t, testutil.Payload(1, 5000), content)
}

func TestPushTwiceReusesBlob(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.New()
	a, _ := testArchive(t)

	first, err := Push(ctx, store, a, "v1")
	require.NoError(t, err)
	second, err := Push(ctx, store, a, "v2")
	require.NoError(t, err)

	_, l1, err := Resolve(ctx, store, "v1")
	require.NoError(t, err)
	_, l2, err := Resolve(ctx, store, "v2")
	require.NoError(t, err)
	assert.Equal(t, l1.Digest, l2.Digest)
	assert.NotEmpty(t, first.Digest)
	assert.NotEmpty(t, second.Digest)
}

func TestPullMissingTag(t *testing.T) {
	t.Parallel()

	_, err := Pull(t.Context(), memory.New(), "nope", filepath.Join(t.TempDir(), "x.peac"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsForeignArtifacts(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.New()
	layer, err := oras.PushBytes(ctx, store, "application/octet-stream", []byte("not an archive"))
	require.NoError(t, err)

	foreign, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, "application/vnd.example.other", oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
	})
	require.NoError(t, err)
	require.NoError(t, store.Tag(ctx, foreign, "foreign"))

	noLayer, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
	})
	require.NoError(t, err)
	require.NoError(t, store.Tag(ctx, noLayer, "nolayer"))

	_, _, err = Resolve(ctx, store, "foreign")
	require.ErrorIs(t, err, ErrInvalidManifest)
	_, _, err = Resolve(ctx, store, "nolayer")
	require.ErrorIs(t, err, ErrMissingArchive)
}

// corruptingTarget flips a byte of every archive layer it serves.
type corruptingTarget struct {
	oras.ReadOnlyTarget
}

func (c corruptingTarget) Fetch(ctx context.Context, desc ocispec.Descriptor) (io.ReadCloser, error) {
	rc, err := c.ReadOnlyTarget.Fetch(ctx, desc)
	if err != nil || desc.MediaType != MediaTypeArchive {
		return rc, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	data[len(data)/2] ^= 0xff
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestPullVerifiesDigest(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.New()
	a, _ := testArchive(t)
	_, err := Push(ctx, store, a, "v1")
	require.NoError(t, err)

	dir := t.TempDir()
	dest := filepath.Join(dir, "site.peac")
	_, err = Pull(ctx, corruptingTarget{store}, "v1", dest)
	require.ErrorIs(t, err, ErrDigestMismatch)

	_, statErr := os.Stat(dest)
	require.ErrorIs(t, statErr, os.ErrNotExist)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be cleaned up")
}

func TestClientRepository(t *testing.T) {
	t.Parallel()

	c := New(WithPlainHTTP(true), WithAnonymous())
	repo, tag, err := c.Repository("localhost:5000/acme/site:v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", tag)
	assert.True(t, repo.PlainHTTP)
	assert.Equal(t, "localhost:5000", repo.Reference.Registry)
	assert.Equal(t, "acme/site", repo.Reference.Repository)

	_, _, err = c.Repository("not a reference")
	require.ErrorIs(t, err, ErrInvalidReference)

	a, _ := testArchive(t)
	_, err = c.Push(context.Background(), "localhost:5000/acme/site", a)
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestClientCredentials(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "store.example.com", auth.Credential{Username: "stored", Password: "s"}))
	require.NoError(t, store.Put(ctx, "https://index.docker.io/v1/", auth.Credential{Username: "hub", Password: "h"}))

	c := New(
		WithCredentialStore(store),
		WithCredentials("https://registry.example.com/v2/", "user", "pass"),
		WithCredentials("localhost:5000", "local", "secret"),
		WithToken("ghcr.io", "tok"),
	)

	tests := []struct {
		host string
		want auth.Credential
	}{
		{"registry.example.com", auth.Credential{Username: "user", Password: "pass"}},
		{"localhost:5000", auth.Credential{Username: "local", Password: "secret"}},
		{"GHCR.io", auth.Credential{AccessToken: "tok"}},
		{"store.example.com", auth.Credential{Username: "stored", Password: "s"}},
		{"registry-1.docker.io", auth.Credential{Username: "hub", Password: "h"}},
		{"other.example.com", auth.EmptyCredential},
	}
	for _, tt := range tests {
		cred, err := c.credential(ctx, tt.host)
		require.NoError(t, err, tt.host)
		assert.Equal(t, tt.want, cred, tt.host)
	}
}

func TestClientCredentialOverrides(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "registry.example.com", auth.Credential{Username: "stored", Password: "s"}))

	explicit := New(WithCredentialStore(store), WithCredentials("registry.example.com", "user", "pass"))
	cred, err := explicit.credential(ctx, "registry.example.com")
	require.NoError(t, err)
	assert.Equal(t, "user", cred.Username)

	replaced := New(WithToken("docker.io", "old"), WithToken("index.docker.io", "new"))
	cred, err = replaced.credential(ctx, "registry-1.docker.io")
	require.NoError(t, err)
	assert.Equal(t, "new", cred.AccessToken)

	anon := New(WithCredentialStore(store), WithCredentials("registry.example.com", "user", "pass"), WithAnonymous())
	cred, err = anon.credential(ctx, "registry.example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.EmptyCredential, cred)
}

func TestHostKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"registry.example.com":             "registry.example.com",
		"https://registry.example.com/v2/": "registry.example.com",
		"http://localhost:5000":            "localhost:5000",
		"Index.Docker.io":                  "docker.io",
		"registry-1.docker.io":             "docker.io",
		"https://index.docker.io/v1/":      "docker.io",
		"[::1]:5000":                       "[::1]:5000",
	}
	for in, want := range tests {
		assert.Equal(t, want, hostKey(in), in)
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	host, err := Host("localhost:5000/assets:v1")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", host)

	_, err = Host("not a reference")
	require.ErrorIs(t, err, ErrInvalidReference)
}
