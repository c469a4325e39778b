package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

const (
	polishPassage = "We utilize a novel approach for checking systems."

	exemplarOne = "We propose a method for evaluating retrieval systems."
	exemplarTwo = "The evaluation uses standard benchmark collections."

	lightRewrite  = "We propose a method for checking retrieval systems."
	mediumRewrite = "We propose a method for evaluating systems on standard benchmark collections."
)

const compliantResponse = `{
  "diagnosis": [
    {"issue": "The corpus prefers concrete verbs over utilize",
     "citations": [{"id": "C1", "quote": "a method for evaluating"}]}
  ],
  "variants": [
    {"level": "light", "text": "` + lightRewrite + `",
     "citations": [{"id": "C1", "quote": "We propose a method"}]},
    {"level": "medium", "text": "` + mediumRewrite + `",
     "citations": [{"id": "C1", "quote": "a method for evaluating"},
                   {"id": "C2", "quote": "standard benchmark collections"}]}
  ]
}`

const fabricatedResponse = `{
  "diagnosis": [
    {"issue": "Vague phrasing",
     "citations": [{"id": "C1", "quote": "novel approach"}]}
  ],
  "variants": [
    {"level": "light", "text": "` + lightRewrite + `",
     "citations": [{"id": "C1", "quote": "We propose a method"}]},
    {"level": "medium", "text": "` + mediumRewrite + `",
     "citations": [{"id": "C2", "quote": "standard benchmark collections"}]}
  ]
}`

func newPolishFixture(t *testing.T, llm *mockLLM) (*PolishService, *mockEmbedder) {
	t.Helper()

	manifests := newMockManifestStore()
	rootDir := t.TempDir()
	seedLibrary(t, manifests, rootDir, "papers", librarySeed{
		dims: 3,
		records: []domain.EmbeddingRecord{
			{ChunkID: "ex1", DocumentPath: "d1.txt", Page: 2, Text: exemplarOne},
			{ChunkID: "ex2", DocumentPath: "d2.txt", Page: 7, Text: exemplarTwo},
		},
		vectors: [][]float32{{1, 0, 0}, {0.8, 0.6, 0}},
	})

	embedder := newMockEmbedder(3)
	embedder.vectors[polishPassage] = []float32{0.9, 0.1, 0}
	embedder.vectors[lightRewrite] = []float32{0.92, 0.12, 0}
	embedder.vectors[mediumRewrite] = []float32{0.88, 0.16, 0}

	svc := NewPolishService(rootDir, manifests, embedder, llm, domain.DefaultAnalysisSettings(), 1024)
	return svc, embedder
}

// TestPolish_RetrievalOnly tests that generate=false never touches the
// generation backend.
func TestPolish_RetrievalOnly(t *testing.T) {
	llm := &mockLLM{}
	svc, _ := newPolishFixture(t, llm)

	result, err := svc.Polish(context.Background(), "papers", polishPassage, 2, false)
	require.NoError(t, err)

	require.Len(t, result.Exemplars, 2)
	assert.Equal(t, "C1", result.Exemplars[0].Label)
	assert.Equal(t, "ex1", result.Exemplars[0].Record.ChunkID)
	assert.Equal(t, "C2", result.Exemplars[1].Label)
	assert.False(t, result.Degraded)
	assert.Zero(t, llm.promptCount())
}

// TestPolish_CompliantResponse tests the happy path through
// compose-generate-validate.
func TestPolish_CompliantResponse(t *testing.T) {
	llm := &mockLLM{responses: []string{compliantResponse}}
	svc, _ := newPolishFixture(t, llm)

	result, err := svc.Polish(context.Background(), "papers", polishPassage, 2, true)
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	require.Len(t, result.Diagnosis, 1)
	require.Len(t, result.Variants, 2)
	assert.Equal(t, domain.VariantLight, result.Variants[0].Level)
	assert.Equal(t, domain.VariantMedium, result.Variants[1].Level)
	assert.Equal(t, 1, llm.promptCount())

	prompt := llm.prompt(0)
	assert.Contains(t, prompt, polishPassage)
	assert.Contains(t, prompt, "[C1]")
	assert.Contains(t, prompt, exemplarOne)
}

// TestPolish_FabricatedQuoteRepaired tests that a quote absent from the
// cited exemplar triggers a repair prompt listing the violation.
func TestPolish_FabricatedQuoteRepaired(t *testing.T) {
	llm := &mockLLM{responses: []string{fabricatedResponse, compliantResponse}}
	svc, _ := newPolishFixture(t, llm)

	result, err := svc.Polish(context.Background(), "papers", polishPassage, 2, true)
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	require.Len(t, result.Variants, 2)

	require.Equal(t, 2, llm.promptCount())
	repair := llm.prompt(1)
	assert.Contains(t, repair, "not a verbatim substring")
	assert.Contains(t, repair, "novel approach")
}

// TestPolish_DegradesAfterRetries tests the evidence-only fallback: a
// backend that never complies exhausts the retry budget and the result
// carries exemplars but no rewrite.
func TestPolish_DegradesAfterRetries(t *testing.T) {
	llm := &mockLLM{responses: []string{fabricatedResponse}}
	svc, _ := newPolishFixture(t, llm)

	result, err := svc.Polish(context.Background(), "papers", polishPassage, 2, true)
	assert.ErrorIs(t, err, domain.ErrGenerationDegraded)

	require.NotNil(t, result)
	assert.True(t, result.Degraded)
	assert.NotEmpty(t, result.DegradedReason)
	assert.Empty(t, result.Variants)
	assert.Len(t, result.Exemplars, 2)

	// Initial attempt plus the default two repair retries.
	assert.Equal(t, 3, llm.promptCount())
}

// TestPolish_UnparsableResponseNotRetried tests that a response that
// does not parse fails straight to the fallback.
func TestPolish_UnparsableResponseNotRetried(t *testing.T) {
	llm := &mockLLM{responses: []string{"I cannot answer in JSON today."}}
	svc, _ := newPolishFixture(t, llm)

	result, err := svc.Polish(context.Background(), "papers", polishPassage, 2, true)
	assert.ErrorIs(t, err, domain.ErrGenerationDegraded)
	assert.True(t, result.Degraded)
	assert.Equal(t, 1, llm.promptCount())
}

// TestPolish_BudgetExceededFailsFast tests that an over-budget prompt
// never reaches the backend.
func TestPolish_BudgetExceededFailsFast(t *testing.T) {
	llm := &mockLLM{responses: []string{compliantResponse}}
	svc, _ := newPolishFixture(t, llm)
	svc.promptBudget = 1

	_, err := svc.Polish(context.Background(), "papers", polishPassage, 2, true)
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.Zero(t, llm.promptCount())
}

// TestPolish_EmptyIndex tests the no-exemplars error.
func TestPolish_EmptyIndex(t *testing.T) {
	manifests := newMockManifestStore()
	rootDir := t.TempDir()
	seedLibrary(t, manifests, rootDir, "empty", librarySeed{dims: 3})

	svc := NewPolishService(rootDir, manifests, newMockEmbedder(3), &mockLLM{}, domain.DefaultAnalysisSettings(), 1024)

	_, err := svc.Polish(context.Background(), "empty", polishPassage, 2, true)
	assert.ErrorIs(t, err, domain.ErrNoExemplars)
}

// TestValidate_BannedInsertions tests the heuristic checks against a
// variant that smuggles in references, years and names.
func TestValidate_BannedInsertions(t *testing.T) {
	llm := &mockLLM{}
	svc, embedder := newPolishFixture(t, llm)

	smuggled := "We propose a method, following Heidelberg [3] since 1999."
	embedder.vectors[smuggled] = []float32{0.9, 0.1, 0}

	exemplars := []domain.Exemplar{
		{Label: "C1", Record: domain.EmbeddingRecord{ChunkID: "ex1", Text: exemplarOne}},
	}
	resp := &contractResponse{
		Variants: []domain.RewriteVariant{
			{Level: domain.VariantLight, Text: smuggled,
				Citations: []domain.CitationRef{{Label: "C1", Quote: "We propose a method"}}},
			{Level: domain.VariantMedium, Text: lightRewrite,
				Citations: []domain.CitationRef{{Label: "C1", Quote: "We propose a method"}}},
		},
	}

	violations := svc.validate(context.Background(), polishPassage, []float32{0.9, 0.1, 0}, exemplars, resp)
	joined := strings.Join(violations, "\n")
	assert.Contains(t, joined, "bracketed numeric citation [3]")
	assert.Contains(t, joined, "new year 1999")
	assert.Contains(t, joined, `new proper noun "Heidelberg"`)
}

// TestPolish_NoGenerationBackend tests degradation when no backend is
// configured at all.
func TestPolish_NoGenerationBackend(t *testing.T) {
	manifests := newMockManifestStore()
	rootDir := t.TempDir()
	seedLibrary(t, manifests, rootDir, "papers", librarySeed{
		dims:    3,
		records: []domain.EmbeddingRecord{{ChunkID: "ex1", Text: exemplarOne}},
		vectors: [][]float32{{1, 0, 0}},
	})

	svc := NewPolishService(rootDir, manifests, newMockEmbedder(3), nil, domain.DefaultAnalysisSettings(), 1024)

	result, err := svc.Polish(context.Background(), "papers", polishPassage, 1, true)
	assert.ErrorIs(t, err, domain.ErrGenerationDegraded)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Exemplars, 1)
}
