package driven

import (
	"context"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// PageExtractor turns a source document file into page-tagged text.
// Extraction itself is a black box (PDF tooling, plain text, markdown);
// the core only relies on the ordered (page number, text) output.
//
// Implementations return domain.ErrUnreadableDocument (wrapped) for
// files they cannot read. Builds log and skip such documents.
type PageExtractor interface {
	// Supports reports whether the extractor handles the given path,
	// usually by extension.
	Supports(path string) bool

	// ExtractPages returns the document's text in page order.
	ExtractPages(ctx context.Context, path string) ([]domain.Page, error)
}
