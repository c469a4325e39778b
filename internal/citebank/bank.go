package citebank

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/custodia-labs/exemplar-cli/internal/atomicfile"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/vecindex"
)

// Bank is the retrievable sub-index over citation sentences: a flat
// vector table parallel to the citation metadata, persisted as its own
// vector/provenance pair with the same atomic discipline as the
// exemplar index.
type Bank struct {
	mu        sync.RWMutex
	dims      int
	vectors   [][]float32
	citations []domain.Citation
}

// NewBank creates an empty citation bank.
func NewBank() *Bank {
	return &Bank{}
}

// Add inserts a citation with its sentence embedding.
func (b *Bank) Add(citation domain.Citation, vector []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	if b.dims == 0 {
		b.dims = len(vector)
	}
	if len(vector) != b.dims {
		return fmt.Errorf("%w: got %d, bank has %d", domain.ErrDimensionMismatch, len(vector), b.dims)
	}

	b.vectors = append(b.vectors, vecindex.Normalise(vector))
	b.citations = append(b.citations, citation)
	return nil
}

// RemoveDocument drops every citation owned by the document and
// returns how many were removed.
func (b *Bank) RemoveDocument(documentPath string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	keepVec := b.vectors[:0]
	keepCit := b.citations[:0]
	for i, c := range b.citations {
		if c.DocumentPath == documentPath {
			removed++
			continue
		}
		keepVec = append(keepVec, b.vectors[i])
		keepCit = append(keepCit, c)
	}
	b.vectors = keepVec
	b.citations = keepCit
	return removed
}

// Search returns the k most similar citation sentences in
// non-increasing score order, ties broken by insertion order. An empty
// bank returns an empty slice.
func (b *Bank) Search(query []float32, k int) ([]domain.CitationHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if k <= 0 || len(b.vectors) == 0 {
		return []domain.CitationHit{}, nil
	}
	if len(query) != b.dims {
		return nil, fmt.Errorf("%w: query has %d, bank has %d", domain.ErrDimensionMismatch, len(query), b.dims)
	}

	q := vecindex.Normalise(query)
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(b.vectors))
	for i, v := range b.vectors {
		scores[i] = scored{idx: i, score: vecindex.Dot(v, q)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]domain.CitationHit, k)
	for i := 0; i < k; i++ {
		hits[i] = domain.CitationHit{
			Citation: b.citations[scores[i].idx],
			Score:    scores[i].score,
		}
	}
	return hits, nil
}

// Len returns the number of stored citations.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.citations)
}

// Reset clears the bank and fixes its dimensionality.
func (b *Bank) Reset(dimensions int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dims = dimensions
	b.vectors = nil
	b.citations = nil
}

// bankFileVersion guards the persisted provenance encoding.
const bankFileVersion = 1

type bankFile struct {
	Version   int
	Citations []domain.Citation
}

// Persist writes the vector table and the citation provenance table
// atomically.
func (b *Bank) Persist(vectorPath, provenancePath string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	vecData, err := vecindex.EncodeVectors(b.dims, b.vectors)
	if err != nil {
		return fmt.Errorf("encode citation vectors: %w", err)
	}

	var provBuf bytes.Buffer
	if err := gob.NewEncoder(&provBuf).Encode(bankFile{Version: bankFileVersion, Citations: b.citations}); err != nil {
		return fmt.Errorf("encode citation provenance: %w", err)
	}

	if err := atomicfile.WriteFile(vectorPath, vecData, 0600); err != nil {
		return fmt.Errorf("write citation vectors: %w", err)
	}
	if err := atomicfile.WriteFile(provenancePath, provBuf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write citation provenance: %w", err)
	}
	return nil
}

// Load replaces the bank contents from persisted files, validating the
// two tables against each other.
func (b *Bank) Load(vectorPath, provenancePath string) error {
	vecData, err := os.ReadFile(vectorPath)
	if err != nil {
		return fmt.Errorf("read citation vectors: %w", err)
	}
	provData, err := os.ReadFile(provenancePath)
	if err != nil {
		return fmt.Errorf("read citation provenance: %w", err)
	}

	dims, vectors, err := vecindex.DecodeVectors(vecData)
	if err != nil {
		return err
	}

	var file bankFile
	if err := gob.NewDecoder(bytes.NewReader(provData)).Decode(&file); err != nil {
		return fmt.Errorf("%w: decode citation provenance: %v", domain.ErrIndexCorrupt, err)
	}
	if file.Version != bankFileVersion {
		return fmt.Errorf("%w: citation bank version %d, want %d", domain.ErrIndexCorrupt, file.Version, bankFileVersion)
	}
	if len(file.Citations) != len(vectors) {
		return fmt.Errorf("%w: %d citations for %d vectors", domain.ErrIndexCorrupt, len(file.Citations), len(vectors))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dims = dims
	b.vectors = vectors
	b.citations = file.Citations
	return nil
}
