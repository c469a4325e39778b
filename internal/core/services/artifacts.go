package services

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/exemplar-cli/internal/citebank"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/stats"
	"github.com/custodia-labs/exemplar-cli/internal/vecindex"
)

// Per-library artifact layout under the libraries root:
//
//	<root>/<name>/manifest.json     (via ManifestStore)
//	<root>/<name>/stats.gob         statistics store
//	<root>/<name>/index.vec/.prov   exemplar index pair
//	<root>/<name>/citations.vec/.prov citation bank pair
const (
	statsFile          = "stats.gob"
	indexVectorFile    = "index.vec"
	indexProvFile      = "index.prov"
	citationVectorFile = "citations.vec"
	citationProvFile   = "citations.prov"
)

// libraryArtifacts is one coherent read of a library's persisted files.
// Readers open the current file set at call time and never hold it
// across calls, so a concurrent build's atomic renames are invisible to
// an in-flight read and visible to the next one.
type libraryArtifacts struct {
	dir      string
	manifest *domain.Manifest
	stats    driven.StatsStore
	index    driven.VectorIndex
	bank     *citebank.Bank
}

// openArtifacts loads a library's persisted artifact set. A missing
// manifest surfaces domain.ErrNotFound; damaged artifact files surface
// domain.ErrIndexCorrupt.
func openArtifacts(manifests driven.ManifestStore, rootDir, library string) (*libraryArtifacts, error) {
	dir := filepath.Join(rootDir, library)

	manifest, err := manifests.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", library, err)
	}

	st := stats.New()
	if err := st.Load(filepath.Join(dir, statsFile)); err != nil {
		return nil, fmt.Errorf("library %q statistics: %w", library, err)
	}

	idx := vecindex.New()
	if err := idx.Load(filepath.Join(dir, indexVectorFile), filepath.Join(dir, indexProvFile)); err != nil {
		return nil, fmt.Errorf("library %q index: %w", library, err)
	}

	bank := citebank.NewBank()
	if err := bank.Load(filepath.Join(dir, citationVectorFile), filepath.Join(dir, citationProvFile)); err != nil {
		return nil, fmt.Errorf("library %q citation bank: %w", library, err)
	}

	return &libraryArtifacts{
		dir:      dir,
		manifest: manifest,
		stats:    st,
		index:    idx,
		bank:     bank,
	}, nil
}
