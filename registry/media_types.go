package registry

// Media types for archives in OCI registries.
const (
	// ArtifactType identifies archives as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.pameecs.peac.v1"

	// MediaTypeArchive is the media type of the archive layer.
	MediaTypeArchive = "application/vnd.pameecs.peac.archive.v1"
)

// Annotations written on the archive layer.
const (
	// AnnotationVersion records the archive format version.
	AnnotationVersion = "dev.pameecs.peac.version"

	// AnnotationChunks records the number of chunks.
	AnnotationChunks = "dev.pameecs.peac.chunks"

	// AnnotationEntries records the number of entries.
	AnnotationEntries = "dev.pameecs.peac.entries"
)
