package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/segment"
)

// Scan embeds each scorable sentence and returns its alignment against
// the exemplar index with the top-k nearest exemplars, weakest-aligned
// sentences first. Retrieval only, no generation.
func (s *AnalysisService) Scan(ctx context.Context, library, text string, topK, maxItems int) ([]domain.ScanSentence, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
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
	if arts.index.Len() == 0 {
		return nil, fmt.Errorf("library %q: %w", library, domain.ErrNoExemplars)
	}

	chunks := s.seg.Sentences("", 0, text)
	var scorable []int
	for i, chunk := range chunks {
		if len(chunk.Tokens) < s.settings.MinSentenceTokens {
			continue
		}
		if segment.IsHeading(chunk.Text, chunk.Tokens) {
			continue
		}
		scorable = append(scorable, i)
	}
	if len(scorable) == 0 {
		return []domain.ScanSentence{}, nil
	}

	texts := make([]string, len(scorable))
	for i, pos := range scorable {
		texts[i] = chunks[pos].Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed sentences: %v", domain.ErrBackendUnavailable, err)
	}

	results := make([]domain.ScanSentence, 0, len(scorable))
	for i, pos := range scorable {
		hits, err := arts.index.Search(ctx, vectors[i], topK)
		if err != nil {
			return nil, fmt.Errorf("search exemplars: %w", err)
		}

		sentence := domain.ScanSentence{
			Sentence:  chunks[pos].Text,
			Position:  pos,
			Exemplars: labelHits(hits),
		}
		if len(hits) > 0 {
			sentence.Alignment = hits[0].Similarity
		}
		results = append(results, sentence)
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Alignment != results[b].Alignment {
			return results[a].Alignment < results[b].Alignment
		}
		return results[a].Position < results[b].Position
	})
	if maxItems > 0 && len(results) > maxItems {
		results = results[:maxItems]
	}
	return results, nil
}
