package driving

import (
	"context"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// AnalysisService scores draft text against a library's corpus
// statistics and exemplar index. Calls are read-only against the
// persisted artifacts and may run concurrently.
type AnalysisService interface {
	// Diagnose splits text into sentences and returns them ranked by:
	// has-any-warning, warning count, highest severity tier present,
	// then original input order (stable).
	Diagnose(ctx context.Context, library string, text string) ([]domain.DiagnosisItem, error)

	// Scan returns a per-sentence alignment score with the top-k
	// nearest exemplars, weakest-aligned sentences first. Retrieval
	// only, no generation. maxItems bounds the number of returned
	// sentences (0 = all).
	Scan(ctx context.Context, library string, text string, topK, maxItems int) ([]domain.ScanSentence, error)
}

// PolishOrchestrator turns retrieved evidence into a validated,
// citation-bound rewrite.
type PolishOrchestrator interface {
	// Polish retrieves top-k exemplars for the passage and, when
	// generate is true, produces a contract-validated rewrite. On
	// validation failure after bounded repair retries the result is
	// degraded to evidence-only and the returned error wraps
	// domain.ErrGenerationDegraded.
	Polish(ctx context.Context, library string, passage string, topK int, generate bool) (*domain.PolishResult, error)
}

// CitationSearcher queries the library's citation bank.
type CitationSearcher interface {
	// SearchCitations returns citation sentences ranked by similarity
	// to the query, with provenance.
	SearchCitations(ctx context.Context, library string, query string, topK int) ([]domain.CitationHit, error)
}
