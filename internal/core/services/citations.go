package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driving"
)

// Ensure CitationSearchService implements the interface.
var _ driving.CitationSearcher = (*CitationSearchService)(nil)

// CitationSearchService answers "how does this corpus cite things like
// X" queries against a library's citation bank.
type CitationSearchService struct {
	rootDir   string
	manifests driven.ManifestStore
	embedder  driven.EmbeddingService
	settings  domain.AnalysisSettings
}

// NewCitationSearchService creates the citation search service.
func NewCitationSearchService(
	rootDir string,
	manifests driven.ManifestStore,
	embedder driven.EmbeddingService,
	settings domain.AnalysisSettings,
) *CitationSearchService {
	return &CitationSearchService{
		rootDir:   rootDir,
		manifests: manifests,
		embedder:  embedder,
		settings:  settings,
	}
}

// SearchCitations returns the library's citation sentences ranked by
// similarity to the query, with document and page provenance.
func (s *CitationSearchService) SearchCitations(ctx context.Context, library, query string, topK int) ([]domain.CitationHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if topK <= 0 {
		topK = s.settings.TopK
	}

	arts, err := openArtifacts(s.manifests, s.rootDir, library)
	if err != nil {
		return nil, err
	}
	if arts.bank.Len() == 0 {
		return []domain.CitationHit{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrBackendUnavailable, err)
	}
	hits, err := arts.bank.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search citations: %w", err)
	}
	return hits, nil
}
