package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/errdef"

	"github.com/pameecs/peac"
)

// pushConfig holds configuration for a push.
type pushConfig struct {
	title       string
	tags        []string
	annotations map[string]string
}

// PushOption configures Push.
type PushOption func(*pushConfig)

// WithTitle sets the org.opencontainers.image.title annotation of the
// archive layer, which tools use as the file name on pull.
func WithTitle(title string) PushOption {
	return func(cfg *pushConfig) {
		cfg.title = title
	}
}

// WithTags applies additional tags to the pushed manifest.
func WithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithAnnotations adds manifest annotations.
func WithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string, len(annotations))
		}
		maps.Copy(cfg.annotations, annotations)
	}
}

// Push stores a as the single layer of an OCI 1.1 artifact manifest in
// target and tags it with tag. Blobs the target already holds are not
// uploaded again.
func Push(ctx context.Context, target oras.Target, a *peac.Archive, tag string, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dgst, err := a.Digest()
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("digest archive: %w", err)
	}
	info := a.Info()
	layer := ocispec.Descriptor{
		MediaType: MediaTypeArchive,
		Digest:    dgst,
		Size:      a.Size(),
		Annotations: map[string]string{
			AnnotationVersion: info.Version,
			AnnotationChunks:  strconv.Itoa(info.Chunks),
			AnnotationEntries: strconv.Itoa(info.Entries),
		},
	}
	if cfg.title != "" {
		layer.Annotations[ocispec.AnnotationTitle] = cfg.title
	}

	exists, err := target.Exists(ctx, layer)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("check archive blob: %w", mapError(err))
	}
	if !exists {
		if err := target.Push(ctx, layer, a.Stream()); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
			return ocispec.Descriptor{}, fmt.Errorf("push archive blob: %w", mapError(err))
		}
	}

	manifest, err := oras.PackManifest(ctx, target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ocispec.Descriptor{layer},
		ManifestAnnotations: cfg.annotations,
	})
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapError(err))
	}

	for _, t := range append([]string{tag}, cfg.tags...) {
		if err := target.Tag(ctx, manifest, t); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", t, mapError(err))
		}
	}
	return manifest, nil
}

// Push stores a in the repository named by ref, which must include a tag.
func (c *Client) Push(ctx context.Context, ref string, a *peac.Archive, opts ...PushOption) (ocispec.Descriptor, error) {
	repo, tag, err := c.Repository(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if tag == "" {
		return ocispec.Descriptor{}, fmt.Errorf("%w: reference must include a tag", ErrInvalidReference)
	}
	c.log().Info("pushing archive", "ref", ref, "size", a.Size())
	desc, err := Push(ctx, repo, a, tag, opts...)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	c.log().Info("pushed archive", "ref", ref, "digest", desc.Digest.String())
	return desc, nil
}
