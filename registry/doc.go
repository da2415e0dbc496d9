// Package registry stores archives in OCI registries.
//
// An archive is pushed as an OCI 1.1 artifact: a manifest of artifact type
// ArtifactType whose single layer is the archive file, byte for byte. Any
// oras.Target works, so the same functions push to a remote repository, a
// local OCI layout, or an in-memory store.
//
// Push an archive:
//
//	c := registry.New(registry.WithDockerConfig())
//	desc, err := c.Push(ctx, "ghcr.io/acme/site:v1", archive)
//
// Pull it back to disk and open it:
//
//	a, err := c.Pull(ctx, "ghcr.io/acme/site:v1", "site.peac")
package registry
