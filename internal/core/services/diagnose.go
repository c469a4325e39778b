package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driving"
	"github.com/custodia-labs/exemplar-cli/internal/logger"
	"github.com/custodia-labs/exemplar-cli/internal/segment"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// maxRarityExamples bounds how many offending terms a rarity warning
// explanation lists.
const maxRarityExamples = 4

// AnalysisService scores draft text against a library's persisted
// statistics and exemplar index. Calls are read-only: each one opens
// the current artifact set and never holds it across calls, so they may
// run concurrently with each other and with a build's atomic renames.
//
// The embedder and syntax comparator are optional. Without an embedder
// the semantic signal is absent and Scan is unavailable; without a
// comparator the syntax signal is absent.
type AnalysisService struct {
	rootDir   string
	manifests driven.ManifestStore
	embedder  driven.EmbeddingService
	syntax    driven.SyntaxComparator
	seg       *segment.Segmenter
	settings  domain.AnalysisSettings
}

// NewAnalysisService creates the diagnosis and scan service.
func NewAnalysisService(
	rootDir string,
	manifests driven.ManifestStore,
	embedder driven.EmbeddingService,
	syntax driven.SyntaxComparator,
	seg *segment.Segmenter,
	settings domain.AnalysisSettings,
) *AnalysisService {
	return &AnalysisService{
		rootDir:   rootDir,
		manifests: manifests,
		embedder:  embedder,
		syntax:    syntax,
		seg:       seg,
		settings:  settings,
	}
}

// Diagnose splits the text into sentences, runs every configured signal
// against each scorable sentence, and returns the items ranked by:
// has-any-warning, warning count, highest severity tier present, then
// input order (stable). Short and heading-shaped sentences are excluded
// from scoring, never from the output.
func (s *AnalysisService) Diagnose(ctx context.Context, library, text string) ([]domain.DiagnosisItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}

	arts, err := openArtifacts(s.manifests, s.rootDir, library)
	if err != nil {
		return nil, err
	}

	chunks := s.seg.Sentences("", 0, text)
	items := make([]domain.DiagnosisItem, len(chunks))
	var scorable []int
	for i, chunk := range chunks {
		items[i] = domain.DiagnosisItem{Sentence: chunk.Text, Position: i}
		if len(chunk.Tokens) < s.settings.MinSentenceTokens {
			continue
		}
		if segment.IsHeading(chunk.Text, chunk.Tokens) {
			continue
		}
		scorable = append(scorable, i)
	}

	for _, i := range scorable {
		chunk := chunks[i]
		if w, ok := s.wordRarityWarning(arts.stats, chunk.Tokens); ok {
			items[i].Warnings = append(items[i].Warnings, w)
		}
		if w, ok := s.bigramRarityWarning(arts.stats, chunk.Tokens); ok {
			items[i].Warnings = append(items[i].Warnings, w)
		}
	}

	if err := s.semanticWarnings(ctx, arts.index, chunks, scorable, items); err != nil {
		return nil, err
	}
	s.syntaxWarnings(ctx, chunks, scorable, items)

	sort.SliceStable(items, func(a, b int) bool {
		ia, ib := &items[a], &items[b]
		if (len(ia.Warnings) > 0) != (len(ib.Warnings) > 0) {
			return len(ia.Warnings) > 0
		}
		if len(ia.Warnings) != len(ib.Warnings) {
			return len(ia.Warnings) > len(ib.Warnings)
		}
		if ia.TopSeverity() != ib.TopSeverity() {
			return ia.TopSeverity() > ib.TopSeverity()
		}
		return ia.Position < ib.Position
	})
	return items, nil
}

// wordRarityWarning flags sentences built largely from words the corpus
// rarely uses.
func (s *AnalysisService) wordRarityWarning(st driven.StatsStore, tokens []string) (domain.Warning, bool) {
	if st.TotalDocs() == 0 {
		return domain.Warning{}, false
	}

	var rare []string
	for _, tok := range tokens {
		if st.Rarity(tok) < s.settings.RareWordThreshold {
			rare = append(rare, tok)
		}
	}
	fraction := float64(len(rare)) / float64(len(tokens))
	if fraction < s.settings.RareFractionTrigger {
		return domain.Warning{}, false
	}

	return domain.Warning{
		Kind:     domain.SignalWordRarity,
		Severity: domain.SeverityPhrasing,
		Explanation: fmt.Sprintf("%d of %d words are rare in this corpus (e.g. %s)",
			len(rare), len(tokens), strings.Join(firstN(rare, maxRarityExamples), ", ")),
	}, true
}

// bigramRarityWarning flags adjacent word pairs the corpus rarely uses.
func (s *AnalysisService) bigramRarityWarning(st driven.StatsStore, tokens []string) (domain.Warning, bool) {
	bigrams := segment.Bigrams(tokens)
	if st.TotalDocs() == 0 || len(bigrams) == 0 {
		return domain.Warning{}, false
	}

	var rare []string
	for _, bg := range bigrams {
		if st.BigramRarity(bg) < s.settings.RareWordThreshold {
			rare = append(rare, bg)
		}
	}
	fraction := float64(len(rare)) / float64(len(bigrams))
	if fraction < s.settings.RareFractionTrigger {
		return domain.Warning{}, false
	}

	return domain.Warning{
		Kind:     domain.SignalBigramRarity,
		Severity: domain.SeverityPhrasing,
		Explanation: fmt.Sprintf("%d of %d word pairs are rare in this corpus (e.g. %s)",
			len(rare), len(bigrams), strings.Join(firstN(rare, maxRarityExamples), ", ")),
	}, true
}

// semanticWarnings embeds the scorable sentences in one batch and flags
// those far from every exemplar. Absent embedder or empty index means
// the signal is simply not produced.
func (s *AnalysisService) semanticWarnings(
	ctx context.Context,
	idx driven.VectorIndex,
	chunks []domain.Chunk,
	scorable []int,
	items []domain.DiagnosisItem,
) error {
	if s.embedder == nil || idx.Len() == 0 || len(scorable) == 0 {
		return nil
	}

	texts := make([]string, len(scorable))
	for i, idx := range scorable {
		texts[i] = chunks[idx].Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed sentences: %v", domain.ErrBackendUnavailable, err)
	}

	for i, pos := range scorable {
		hits, err := idx.Search(ctx, vectors[i], 1)
		if err != nil {
			return fmt.Errorf("search exemplars: %w", err)
		}
		if len(hits) == 0 || hits[0].Similarity >= s.settings.SemanticFloor {
			continue
		}
		items[pos].Warnings = append(items[pos].Warnings, domain.Warning{
			Kind:     domain.SignalSemantic,
			Severity: domain.SeveritySemantic,
			Explanation: fmt.Sprintf("no exemplar is semantically close (best similarity %.0f%%)",
				domain.DisplaySimilarity(hits[0].Similarity)),
			ExemplarIDs: []string{hits[0].Record.ChunkID},
		})
	}
	return nil
}

// syntaxWarnings asks the optional comparator about each scorable
// sentence. Comparator failures lose the signal, never the diagnosis.
func (s *AnalysisService) syntaxWarnings(ctx context.Context, chunks []domain.Chunk, scorable []int, items []domain.DiagnosisItem) {
	if s.syntax == nil {
		return
	}
	for _, pos := range scorable {
		outlier, explanation, err := s.syntax.Compare(ctx, chunks[pos].Text)
		if err != nil {
			logger.Debug("Syntax comparison: %v", err)
			continue
		}
		if !outlier {
			continue
		}
		items[pos].Warnings = append(items[pos].Warnings, domain.Warning{
			Kind:        domain.SignalSyntax,
			Severity:    domain.SeveritySyntax,
			Explanation: explanation,
		})
	}
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
