package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"

	"github.com/pameecs/peac"
	"github.com/pameecs/peac/internal/file"
)

// maxManifestSize bounds the manifest fetched during Resolve.
const maxManifestSize = 4 << 20

// Resolve looks up ref in target and returns the manifest descriptor and
// the archive layer it points to.
func Resolve(ctx context.Context, target oras.ReadOnlyTarget, ref string) (manifest, layer ocispec.Descriptor, err error) {
	manifest, err = target.Resolve(ctx, ref)
	if err != nil {
		return manifest, layer, fmt.Errorf("resolve %q: %w", ref, mapError(err))
	}
	if manifest.MediaType != ocispec.MediaTypeImageManifest {
		return manifest, layer, fmt.Errorf("%w: media type %s", ErrInvalidManifest, manifest.MediaType)
	}
	if manifest.Size > maxManifestSize {
		return manifest, layer, fmt.Errorf("%w: manifest of %d bytes", ErrInvalidManifest, manifest.Size)
	}
	raw, err := content.FetchAll(ctx, target, manifest)
	if err != nil {
		return manifest, layer, fmt.Errorf("fetch manifest: %w", mapError(err))
	}

	var m ocispec.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return manifest, layer, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.ArtifactType != ArtifactType {
		return manifest, layer, fmt.Errorf("%w: artifact type %q", ErrInvalidManifest, m.ArtifactType)
	}
	for _, l := range m.Layers {
		if l.MediaType == MediaTypeArchive {
			return manifest, l, nil
		}
	}
	return manifest, layer, ErrMissingArchive
}

// Pull fetches the archive tagged ref from target and writes it atomically
// to dest, verifying its digest. It returns the archive layer descriptor.
func Pull(ctx context.Context, target oras.ReadOnlyTarget, ref, dest string) (ocispec.Descriptor, error) {
	_, layer, err := Resolve(ctx, target, ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if err := layer.Digest.Validate(); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: layer digest: %v", ErrInvalidManifest, err)
	}

	rc, err := target.Fetch(ctx, layer)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("fetch archive blob: %w", mapError(err))
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("create destination directory: %w", err)
	}
	err = file.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		verifier := layer.Digest.Verifier()
		n, err := io.Copy(io.MultiWriter(w, verifier), io.LimitReader(rc, layer.Size+1))
		if err != nil {
			return err
		}
		if n != layer.Size || !verifier.Verified() {
			return fmt.Errorf("%w: %s (%d of %d bytes)", ErrDigestMismatch, layer.Digest, n, layer.Size)
		}
		return nil
	})
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return layer, nil
}

// Pull fetches the archive named by ref to dest and opens it.
func (c *Client) Pull(ctx context.Context, ref, dest string, opts ...peac.Option) (*peac.Archive, error) {
	repo, tag, err := c.Repository(ref)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return nil, fmt.Errorf("%w: reference must include a tag or digest", ErrInvalidReference)
	}
	c.log().Info("pulling archive", "ref", ref, "dest", dest)
	layer, err := Pull(ctx, repo, tag, dest)
	if err != nil {
		return nil, err
	}
	c.log().Info("pulled archive", "ref", ref, "digest", layer.Digest.String(), "size", layer.Size)
	return peac.Open(dest, opts...)
}
