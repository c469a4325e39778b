package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/segment"
)

const (
	strongSentence = "The method is evaluated on public benchmark collections."
	weakSentence   = "Our approach reuses the standard evaluation protocol throughout."
)

func seedScanLibrary(t *testing.T, manifests *mockManifestStore, rootDir string) {
	t.Helper()
	seedLibrary(t, manifests, rootDir, "papers", librarySeed{
		dims: 3,
		records: []domain.EmbeddingRecord{
			{ChunkID: "ex1", DocumentPath: "d1.txt", Page: 1, Text: "Methods are evaluated on benchmarks."},
			{ChunkID: "ex2", DocumentPath: "d2.txt", Page: 4, Text: "Standard protocols guide evaluation."},
		},
		vectors: [][]float32{{1, 0, 0}, {0, 1, 0}},
	})
}

// TestScan_WeakestFirst tests ordering, labelling and truncation.
func TestScan_WeakestFirst(t *testing.T) {
	manifests := newMockManifestStore()
	rootDir := t.TempDir()
	seedScanLibrary(t, manifests, rootDir)

	embedder := newMockEmbedder(3)
	embedder.vectors[strongSentence] = []float32{1, 0, 0}
	embedder.vectors[weakSentence] = []float32{0.6, 0.8, 0}

	svc := NewAnalysisService(rootDir, manifests, embedder, nil, segment.New(), domain.DefaultAnalysisSettings())

	results, err := svc.Scan(context.Background(), "papers", strongSentence+" "+weakSentence, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The weaker-aligned sentence comes first.
	assert.Equal(t, weakSentence, results[0].Sentence)
	assert.InDelta(t, 0.8, results[0].Alignment, 1e-6)
	assert.Equal(t, strongSentence, results[1].Sentence)
	assert.InDelta(t, 1.0, results[1].Alignment, 1e-6)

	require.Len(t, results[0].Exemplars, 2)
	assert.Equal(t, "C1", results[0].Exemplars[0].Label)
	assert.Equal(t, "ex2", results[0].Exemplars[0].Record.ChunkID)
	assert.Equal(t, "C2", results[0].Exemplars[1].Label)

	truncated, err := svc.Scan(context.Background(), "papers", strongSentence+" "+weakSentence, 2, 1)
	require.NoError(t, err)
	require.Len(t, truncated, 1)
	assert.Equal(t, weakSentence, truncated[0].Sentence)
}

// TestScan_EmptyIndex tests the no-exemplars error.
func TestScan_EmptyIndex(t *testing.T) {
	manifests := newMockManifestStore()
	rootDir := t.TempDir()
	seedLibrary(t, manifests, rootDir, "empty", librarySeed{dims: 3})

	svc := NewAnalysisService(rootDir, manifests, newMockEmbedder(3), nil, segment.New(), domain.DefaultAnalysisSettings())

	_, err := svc.Scan(context.Background(), "empty", strongSentence, 3, 0)
	assert.ErrorIs(t, err, domain.ErrNoExemplars)
}

// TestScan_WithoutEmbedder tests that retrieval needs an embedding
// service.
func TestScan_WithoutEmbedder(t *testing.T) {
	svc := NewAnalysisService(t.TempDir(), newMockManifestStore(), nil, nil, segment.New(), domain.DefaultAnalysisSettings())

	_, err := svc.Scan(context.Background(), "papers", strongSentence, 3, 0)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
