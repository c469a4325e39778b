package driven

import (
	"context"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// PageStore caches extracted page text keyed by document path and
// content hash, so rebuilds skip re-extraction for documents whose
// bytes have not changed. The cache is an optimisation only: it is not
// one of the library's persisted artifacts and may be deleted freely.
type PageStore interface {
	// GetPages returns the cached pages for (path, contentHash), or
	// ok=false on a cache miss.
	GetPages(ctx context.Context, path, contentHash string) (pages []domain.Page, ok bool, err error)

	// PutPages stores extracted pages for (path, contentHash),
	// replacing any older hash for the same path.
	PutPages(ctx context.Context, path, contentHash string, pages []domain.Page) error

	// DeleteDocument drops all cached pages for a path.
	DeleteDocument(ctx context.Context, path string) error

	// Close releases resources.
	Close() error
}
