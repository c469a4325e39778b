// Package vecindex provides a flat (exhaustive) embedding index with
// crash-safe persistence. Vectors are unit-normalised on insert, so
// similarity is a plain dot product equal to cosine similarity.
//
// Corpora here are a few thousand sentences per library, which keeps
// exhaustive scoring well under a millisecond; an approximate index
// would only add recall loss.
package vecindex

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/custodia-labs/exemplar-cli/internal/atomicfile"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// Ensure Flat implements the interface.
var _ driven.VectorIndex = (*Flat)(nil)

// Vector file layout: magic, version, dims, count, then count*dims
// float32 values little-endian.
const (
	vectorMagic   uint32 = 0x45585649 // "EXVI"
	vectorVersion uint32 = 1
)

// Flat is an in-memory exhaustive index over unit-normalised vectors
// with a parallel provenance table.
type Flat struct {
	mu      sync.RWMutex
	dims    int
	vectors [][]float32
	records []domain.EmbeddingRecord
}

// New creates an empty index. Dimensionality is fixed by the first Add
// or by Reset.
func New() *Flat {
	return &Flat{}
}

// Add inserts a record with its embedding. The vector is copied and
// unit-normalised; a wrong-length vector is rejected.
func (f *Flat) Add(_ context.Context, record domain.EmbeddingRecord, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	if f.dims == 0 {
		f.dims = len(vector)
	}
	if len(vector) != f.dims {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(vector), f.dims)
	}

	f.vectors = append(f.vectors, Normalise(vector))
	f.records = append(f.records, record)
	return nil
}

// RemoveDocument drops every record owned by the document.
func (f *Flat) RemoveDocument(_ context.Context, documentPath string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	keepVec := f.vectors[:0]
	keepRec := f.records[:0]
	for i, rec := range f.records {
		if rec.DocumentPath == documentPath {
			removed++
			continue
		}
		keepVec = append(keepVec, f.vectors[i])
		keepRec = append(keepRec, rec)
	}
	f.vectors = keepVec
	f.records = keepRec
	return removed, nil
}

// Search returns the k highest cosine-similarity records in
// non-increasing score order. Ties break by insertion order, so
// repeated searches are stable. An empty index returns an empty slice.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.vectors) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != f.dims {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), f.dims)
	}

	q := Normalise(query)
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(f.vectors))
	for i, v := range f.vectors {
		scores[i] = scored{idx: i, score: Dot(v, q)}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = driven.VectorHit{
			Record:     f.records[scores[i].idx],
			Similarity: scores[i].score,
		}
	}
	return hits, nil
}

// Len returns the number of stored records.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Dimensions returns the fixed vector size, or zero when empty.
func (f *Flat) Dimensions() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dims
}

// Reset clears the index and fixes its dimensionality.
func (f *Flat) Reset(dimensions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dims = dimensions
	f.vectors = nil
	f.records = nil
}

// provenanceFile is the gob envelope for the provenance table.
type provenanceFile struct {
	Version int
	Records []domain.EmbeddingRecord
}

// Persist writes the vector table and the parallel provenance table,
// each via the temporary-file-then-rename discipline.
func (f *Flat) Persist(vectorPath, provenancePath string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	vecData, err := EncodeVectors(f.dims, f.vectors)
	if err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}

	var provBuf bytes.Buffer
	prov := provenanceFile{Version: int(vectorVersion), Records: f.records}
	if err := gob.NewEncoder(&provBuf).Encode(prov); err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}

	if err := atomicfile.WriteFile(vectorPath, vecData, 0600); err != nil {
		return fmt.Errorf("write vector table: %w", err)
	}
	if err := atomicfile.WriteFile(provenancePath, provBuf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write provenance table: %w", err)
	}
	return nil
}

// Load replaces the index contents from persisted files. Every
// consistency property is validated: magic, version, dimensionality,
// exact byte length, and vector/provenance record counts.
func (f *Flat) Load(vectorPath, provenancePath string) error {
	vecData, err := os.ReadFile(vectorPath)
	if err != nil {
		return fmt.Errorf("read vector table: %w", err)
	}
	provData, err := os.ReadFile(provenancePath)
	if err != nil {
		return fmt.Errorf("read provenance table: %w", err)
	}

	dims, vectors, err := DecodeVectors(vecData)
	if err != nil {
		return err
	}

	var prov provenanceFile
	if err := gob.NewDecoder(bytes.NewReader(provData)).Decode(&prov); err != nil {
		return fmt.Errorf("%w: decode provenance: %v", domain.ErrIndexCorrupt, err)
	}
	if len(prov.Records) != len(vectors) {
		return fmt.Errorf("%w: %d provenance records for %d vectors", domain.ErrIndexCorrupt, len(prov.Records), len(vectors))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.dims = dims
	f.vectors = vectors
	f.records = prov.Records
	return nil
}
