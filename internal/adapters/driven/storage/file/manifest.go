// Package file provides file-backed persistence for library metadata.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/exemplar-cli/internal/atomicfile"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// manifestFile is the manifest filename inside a library directory.
const manifestFile = "manifest.json"

// ManifestStore persists manifests as JSON files, one per library
// directory, written through atomic replacement.
type ManifestStore struct{}

// NewManifestStore creates a file-backed manifest store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{}
}

// Load reads the manifest from the library directory.
func (s *ManifestStore) Load(libraryDir string) (*domain.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(libraryDir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("manifest for %s: %w", libraryDir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest domain.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Entries == nil {
		manifest.Entries = make(map[string]domain.ManifestEntry)
	}
	return &manifest, nil
}

// Save writes the manifest atomically.
func (s *ManifestStore) Save(libraryDir string, manifest *domain.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := atomicfile.WriteFile(filepath.Join(libraryDir, manifestFile), data, 0600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
