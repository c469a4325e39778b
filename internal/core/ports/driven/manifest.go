package driven

import "github.com/custodia-labs/exemplar-cli/internal/core/domain"

// ManifestStore persists the per-library manifest. Saves use the same
// atomic-replace discipline as the index artifacts so the manifest is
// never observable half-written.
type ManifestStore interface {
	// Load reads the manifest from the library directory. Returns
	// domain.ErrNotFound when no manifest exists yet.
	Load(libraryDir string) (*domain.Manifest, error)

	// Save writes the manifest atomically.
	Save(libraryDir string, manifest *domain.Manifest) error
}
