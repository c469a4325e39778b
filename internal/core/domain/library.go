package domain

import "time"

// Library is a named container for one exemplar corpus and its derived
// artifacts: the statistics store, the exemplar index, the citation bank
// and the manifest. Exactly one Library is active per analysis session;
// multiple Libraries may coexist on disk.
type Library struct {
	// Name is the unique library identifier (also its directory name).
	Name string

	// CorpusDir is the folder of source documents this library indexes.
	CorpusDir string

	// Dimensions is the embedding vector size fixed for this library.
	// Zero until the first successful build.
	Dimensions int

	// EmbeddingModel records the model that produced the vectors, so a
	// model change forces a full rebuild instead of mixing vector spaces.
	EmbeddingModel string

	// BuiltAt is when the last successful build completed.
	BuiltAt time.Time
}

// SourceDocument identifies one corpus document by its path relative to
// the corpus folder. Documents are replaced wholesale when their content
// hash changes; they are never partially updated.
type SourceDocument struct {
	// Path is the identity: the path relative to the corpus folder.
	Path string

	// Size is the file size in bytes at ingestion time.
	Size int64

	// ModTime is the file modification time at ingestion time.
	ModTime time.Time

	// ContentHash is the SHA-256 of the file bytes, used for change
	// detection when size/mtime alone is inconclusive.
	ContentHash string

	// Pages holds the extracted text in page order.
	Pages []Page
}

// Page is one page of extracted text.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the extracted text for the page.
	Text string
}

// Manifest maps source document identity to ingestion metadata. The
// on-disk artifacts of a library are either fully absent or fully
// consistent with its manifest.
type Manifest struct {
	// Version is the artifact schema version.
	Version int

	// CorpusDir is the corpus folder the library was built from.
	CorpusDir string

	// Dimensions is the vector size the persisted index was built with.
	Dimensions int

	// EmbeddingModel is the model the persisted index was built with.
	EmbeddingModel string

	// BuiltAt is when the manifest was last persisted.
	BuiltAt time.Time

	// Entries is keyed by SourceDocument.Path.
	Entries map[string]ManifestEntry
}

// ManifestEntry records what was known about a document when it was
// last ingested.
type ManifestEntry struct {
	// Size is the file size in bytes at ingestion time.
	Size int64

	// ModTime is the file modification time at ingestion time.
	ModTime time.Time

	// ContentHash is the SHA-256 of the file bytes.
	ContentHash string

	// Pages is the extracted page count.
	Pages int

	// Chunks is the number of chunks the document contributed.
	Chunks int
}

// ManifestVersion is the current manifest schema version.
const ManifestVersion = 1

// NewManifest returns an empty manifest at the current schema version.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Entries: make(map[string]ManifestEntry),
	}
}

// Unchanged reports whether the entry still matches the given file
// attributes on the (size, mtime) fast path.
func (e ManifestEntry) Unchanged(size int64, modTime time.Time) bool {
	return e.Size == size && e.ModTime.Equal(modTime)
}
