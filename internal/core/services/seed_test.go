package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/exemplar-cli/internal/citebank"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/stats"
	"github.com/custodia-labs/exemplar-cli/internal/vecindex"
)

// docSeed is one document's statistics contribution.
type docSeed struct {
	words   []string
	bigrams []string
}

// librarySeed describes a pre-built artifact set for read-path tests.
type librarySeed struct {
	dims      int
	docs      map[string]docSeed
	records   []domain.EmbeddingRecord
	vectors   [][]float32
	citations []domain.Citation
	citVecs   [][]float32
}

// seedLibrary persists a library's full artifact set without running a
// build, so analysis tests control the corpus exactly.
func seedLibrary(t *testing.T, manifests driven.ManifestStore, rootDir, name string, seed librarySeed) {
	t.Helper()
	dir := filepath.Join(rootDir, name)

	st := stats.New()
	for path, doc := range seed.docs {
		st.IngestDocument(path, doc.words, doc.bigrams)
	}
	require.NoError(t, st.Persist(filepath.Join(dir, statsFile)))

	idx := vecindex.New()
	idx.Reset(seed.dims)
	for i, rec := range seed.records {
		require.NoError(t, idx.Add(context.Background(), rec, seed.vectors[i]))
	}
	require.NoError(t, idx.Persist(filepath.Join(dir, indexVectorFile), filepath.Join(dir, indexProvFile)))

	bank := citebank.NewBank()
	bank.Reset(seed.dims)
	for i, cit := range seed.citations {
		require.NoError(t, bank.Add(cit, seed.citVecs[i]))
	}
	require.NoError(t, bank.Persist(filepath.Join(dir, citationVectorFile), filepath.Join(dir, citationProvFile)))

	manifest := domain.NewManifest()
	manifest.CorpusDir = dir
	manifest.Dimensions = seed.dims
	manifest.EmbeddingModel = "mock-embed"
	require.NoError(t, manifests.Save(dir, manifest))
}
