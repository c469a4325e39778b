package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// TestRarity_DocumentFrequency tests that rarity is DF/totalDocs, not
// raw term frequency.
func TestRarity_DocumentFrequency(t *testing.T) {
	s := New()

	// "utilize" appears in 2 of 10 documents; repetition within a
	// document must not change the statistic.
	for i := 0; i < 10; i++ {
		words := []string{"the", "method", "works"}
		if i < 2 {
			words = append(words, "utilize", "utilize", "utilize")
		}
		s.IngestDocument(fmt.Sprintf("doc-%d.pdf", i), words, nil)
	}

	assert.Equal(t, 10, s.TotalDocs())
	assert.InDelta(t, 0.2, s.Rarity("utilize"), 1e-9)
	assert.InDelta(t, 1.0, s.Rarity("method"), 1e-9)
	assert.Zero(t, s.Rarity("unseen"))
}

// TestRarity_BoundedByTotalDocs tests DF(t) <= totalDocs for all terms.
func TestRarity_BoundedByTotalDocs(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.IngestDocument(fmt.Sprintf("d%d", i), []string{"common"}, []string{"common pair"})
	}

	assert.LessOrEqual(t, s.Rarity("common"), 1.0)
	assert.LessOrEqual(t, s.BigramRarity("common pair"), 1.0)
}

// TestIngestDocument_Replaces tests that re-ingesting a path replaces
// its earlier contribution instead of double counting.
func TestIngestDocument_Replaces(t *testing.T) {
	s := New()
	s.IngestDocument("a.pdf", []string{"alpha"}, nil)
	s.IngestDocument("a.pdf", []string{"beta"}, nil)

	assert.Equal(t, 1, s.TotalDocs())
	assert.Zero(t, s.Rarity("alpha"))
	assert.InDelta(t, 1.0, s.Rarity("beta"), 1e-9)
}

// TestRemoveDocument tests exact subtraction of a document's contribution.
func TestRemoveDocument(t *testing.T) {
	s := New()
	s.IngestDocument("a.pdf", []string{"shared", "only-a"}, []string{"shared pair"})
	s.IngestDocument("b.pdf", []string{"shared"}, []string{"shared pair"})

	s.RemoveDocument("a.pdf")

	assert.Equal(t, 1, s.TotalDocs())
	assert.InDelta(t, 1.0, s.Rarity("shared"), 1e-9)
	assert.Zero(t, s.Rarity("only-a"))
	assert.InDelta(t, 1.0, s.BigramRarity("shared pair"), 1e-9)
}

// TestEmptyStore tests queries against an empty store.
func TestEmptyStore(t *testing.T) {
	s := New()
	assert.Zero(t, s.TotalDocs())
	assert.Zero(t, s.Rarity("anything"))
	assert.Zero(t, s.BigramRarity("any thing"))
}

// TestPersistLoad_RoundTrip tests persistence round-trips exactly.
func TestPersistLoad_RoundTrip(t *testing.T) {
	s := New()
	s.IngestDocument("a.pdf", []string{"alpha", "beta"}, []string{"alpha beta"})
	s.IngestDocument("b.pdf", []string{"alpha"}, nil)

	path := filepath.Join(t.TempDir(), "stats.gob")
	require.NoError(t, s.Persist(path))

	loaded := New()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.TotalDocs())
	assert.InDelta(t, 1.0, loaded.Rarity("alpha"), 1e-9)
	assert.InDelta(t, 0.5, loaded.Rarity("beta"), 1e-9)
	assert.InDelta(t, 0.5, loaded.BigramRarity("alpha beta"), 1e-9)
}

// TestPersist_Deterministic tests that identical contents encode to
// identical bytes regardless of ingestion order.
func TestPersist_Deterministic(t *testing.T) {
	a := New()
	a.IngestDocument("x.pdf", []string{"one", "two"}, nil)
	a.IngestDocument("y.pdf", []string{"three"}, nil)

	b := New()
	b.IngestDocument("y.pdf", []string{"three"}, nil)
	b.IngestDocument("x.pdf", []string{"two", "one"}, nil)

	dir := t.TempDir()
	pa := filepath.Join(dir, "a.gob")
	pb := filepath.Join(dir, "b.gob")
	require.NoError(t, a.Persist(pa))
	require.NoError(t, b.Persist(pb))

	da, err := os.ReadFile(pa)
	require.NoError(t, err)
	db, err := os.ReadFile(pb)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

// TestLoad_Corrupt tests that a damaged file surfaces ErrIndexCorrupt.
func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0600))

	s := New()
	err := s.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}
