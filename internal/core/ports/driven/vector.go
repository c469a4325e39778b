package driven

import (
	"context"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// VectorIndex stores unit-normalised embedding vectors with provenance
// and answers nearest-neighbour queries. One instance backs the
// exemplar index; a second, dedicated instance backs the citation bank.
type VectorIndex interface {
	// Add inserts a record with its embedding. Vectors are normalised
	// on insert; a wrong-length vector is rejected with
	// domain.ErrDimensionMismatch.
	Add(ctx context.Context, record domain.EmbeddingRecord, vector []float32) error

	// RemoveDocument drops every record owned by the document and
	// returns how many were removed.
	RemoveDocument(ctx context.Context, documentPath string) (int, error)

	// Search returns the k highest cosine-similarity records in
	// non-increasing score order, ties broken by insertion order.
	// Searching an empty index returns an empty slice, not an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored records.
	Len() int

	// Dimensions returns the fixed vector size, or zero when empty.
	Dimensions() int

	// Persist writes the vector table and parallel provenance table
	// atomically to the given paths.
	Persist(vectorPath, provenancePath string) error

	// Load replaces the index contents from persisted files. Truncated
	// files or mismatched tables surface domain.ErrIndexCorrupt.
	Load(vectorPath, provenancePath string) error

	// Reset clears the index and fixes its dimensionality.
	Reset(dimensions int)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Record is the matched embedding record with provenance.
	Record domain.EmbeddingRecord

	// Similarity is the cosine similarity score in [-1, 1].
	Similarity float64
}
