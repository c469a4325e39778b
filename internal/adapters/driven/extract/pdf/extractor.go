// Package pdf provides a page extractor for PDF documents backed by
// the poppler pdftotext tool. pdftotext emits a form feed after each
// page, which maps directly onto the page model.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// defaultBinary is the pdftotext executable name resolved via PATH.
const defaultBinary = "pdftotext"

// Extractor converts PDF files to page-tagged text via pdftotext.
type Extractor struct {
	binary string
}

// NewExtractor creates a PDF extractor. It returns an error when the
// pdftotext binary cannot be found, so the build surface can report a
// missing tool up front instead of per document.
func NewExtractor() (*Extractor, error) {
	path, err := exec.LookPath(defaultBinary)
	if err != nil {
		return nil, fmt.Errorf("pdftotext not found in PATH: %w", err)
	}
	return &Extractor{binary: path}, nil
}

// Supports reports whether the path has a PDF extension.
func (e *Extractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ExtractPages runs pdftotext and splits its output on form feeds.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, "-enc", "UTF-8", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdftotext %s: %v: %s",
			domain.ErrUnreadableDocument, path, err, strings.TrimSpace(stderr.String()))
	}

	var pages []domain.Page
	for i, raw := range strings.Split(stdout.String(), "\f") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s contains no extractable text", domain.ErrUnreadableDocument, path)
	}
	return pages, nil
}
