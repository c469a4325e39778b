package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driving"
	"github.com/custodia-labs/exemplar-cli/internal/logger"
	"github.com/custodia-labs/exemplar-cli/internal/vecindex"
)

// Ensure PolishService implements the interface.
var _ driving.PolishOrchestrator = (*PolishService)(nil)

// defaultPromptBudget caps the estimated prompt size in tokens. The cap
// is checked before every backend call so an oversized repair prompt
// fails fast instead of burning a second request.
const defaultPromptBudget = 12000

// PolishService turns retrieved exemplar evidence into a validated,
// citation-bound rewrite. Correctness is enforced by validation, not by
// trusting the generation backend: a response that violates the
// contract is repaired within a bounded retry budget or the result
// degrades to evidence-only. A non-compliant rewrite is never surfaced.
type PolishService struct {
	rootDir      string
	manifests    driven.ManifestStore
	embedder     driven.EmbeddingService
	llm          driven.GenerationService
	settings     domain.AnalysisSettings
	maxTokens    int
	promptBudget int
}

// NewPolishService creates the orchestrator. The generation service may
// be nil, in which case polish requests degrade to evidence-only.
func NewPolishService(
	rootDir string,
	manifests driven.ManifestStore,
	embedder driven.EmbeddingService,
	llm driven.GenerationService,
	settings domain.AnalysisSettings,
	maxTokens int,
) *PolishService {
	return &PolishService{
		rootDir:      rootDir,
		manifests:    manifests,
		embedder:     embedder,
		llm:          llm,
		settings:     settings,
		maxTokens:    maxTokens,
		promptBudget: defaultPromptBudget,
	}
}

// contractResponse is the structured output the backend must produce.
type contractResponse struct {
	Diagnosis []domain.GeneratedDiagnosis `json:"diagnosis"`
	Variants  []domain.RewriteVariant     `json:"variants"`
}

// Polish retrieves top-k exemplars for the passage and, when generate
// is true, produces a contract-validated rewrite.
func (s *PolishService) Polish(ctx context.Context, library, passage string, topK int, generate bool) (*domain.PolishResult, error) {
	if strings.TrimSpace(passage) == "" {
		return nil, fmt.Errorf("%w: empty passage", domain.ErrInvalidInput)
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

	passageVec, err := s.embedder.Embed(ctx, passage)
	if err != nil {
		return nil, fmt.Errorf("%w: embed passage: %v", domain.ErrBackendUnavailable, err)
	}
	hits, err := arts.index.Search(ctx, passageVec, topK)
	if err != nil {
		return nil, fmt.Errorf("search exemplars: %w", err)
	}

	result := &domain.PolishResult{
		Passage:   passage,
		Exemplars: labelHits(hits),
	}
	if !generate {
		return result, nil
	}
	if s.llm == nil {
		return degrade(result, "generation backend not configured")
	}
	return s.generate(ctx, result, passageVec)
}

// generate runs the compose-generate-validate-repair loop.
func (s *PolishService) generate(ctx context.Context, result *domain.PolishResult, passageVec []float32) (*domain.PolishResult, error) {
	prompt := composePrompt(result.Passage, result.Exemplars)
	attempts := 1 + s.settings.RepairRetries

	var raw string
	var violations []string
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			prompt = repairPrompt(prompt, raw, violations)
		}
		if est := estimateTokens(prompt); est > s.promptBudget {
			return nil, fmt.Errorf("%w: prompt is ~%d tokens, budget %d", domain.ErrBudgetExceeded, est, s.promptBudget)
		}

		var err error
		raw, err = s.llm.Complete(ctx, prompt, driven.CompleteOptions{MaxTokens: s.maxTokens, Temperature: 0})
		if err != nil {
			return degrade(result, fmt.Sprintf("generation backend: %v", err))
		}

		resp, err := parseResponse(raw)
		if err != nil {
			// An unparsable response is not repairable.
			return degrade(result, fmt.Sprintf("response did not parse as the rewrite contract: %v", err))
		}

		violations = s.validate(ctx, result.Passage, passageVec, result.Exemplars, resp)
		if len(violations) == 0 {
			result.Diagnosis = resp.Diagnosis
			result.Variants = resp.Variants
			return result, nil
		}
		logger.Debug("Rewrite attempt %d violated the contract: %s", attempt, strings.Join(violations, "; "))
	}

	return degrade(result, fmt.Sprintf("contract violations after %d attempts: %s", attempts, strings.Join(violations, "; ")))
}

// degrade marks the result evidence-only and pairs it with the
// sentinel. The caller still receives the retrieved exemplars.
func degrade(result *domain.PolishResult, reason string) (*domain.PolishResult, error) {
	result.Degraded = true
	result.DegradedReason = reason
	result.Diagnosis = nil
	result.Variants = nil
	return result, fmt.Errorf("%s: %w", reason, domain.ErrGenerationDegraded)
}

// labelHits converts search hits into C1..Ck labelled exemplars in
// score order.
func labelHits(hits []driven.VectorHit) []domain.Exemplar {
	exemplars := make([]domain.Exemplar, len(hits))
	for i, hit := range hits {
		exemplars[i] = domain.Exemplar{
			Label:  fmt.Sprintf("C%d", i+1),
			Record: hit.Record,
			Score:  hit.Similarity,
		}
	}
	return exemplars
}

// composePrompt builds the contract prompt: the passage, the labelled
// exemplar texts with provenance, and the output rules the validator
// later enforces mechanically.
func composePrompt(passage string, exemplars []domain.Exemplar) string {
	var b strings.Builder
	b.WriteString("You align draft text with the style of an exemplar corpus.\n\n")
	b.WriteString("Exemplars:\n")
	for _, ex := range exemplars {
		fmt.Fprintf(&b, "[%s] (%s p.%d) %s\n", ex.Label, ex.Record.DocumentPath, ex.Record.Page, ex.Record.Text)
	}
	b.WriteString("\nPassage:\n")
	b.WriteString(passage)
	b.WriteString("\n\nRespond with a single JSON object and nothing else:\n")
	b.WriteString(`{"diagnosis":[{"issue":"...","citations":[{"id":"C1","quote":"..."}]}],` +
		`"variants":[{"level":"light","text":"...","citations":[{"id":"C1","quote":"..."}]},` +
		`{"level":"medium","text":"...","citations":[{"id":"C2","quote":"..."}]}]}` + "\n")
	b.WriteString("\nRules:\n")
	b.WriteString("- Cite only the exemplar ids listed above.\n")
	b.WriteString("- Every quote must be copied verbatim from the cited exemplar's text.\n")
	b.WriteString("- Produce exactly two variants: one \"light\" and one \"medium\".\n")
	b.WriteString("- Keep the passage's meaning; do not add facts, years, names or bracketed reference numbers.\n")
	return b.String()
}

// repairPrompt asks the backend to fix its previous response, listing
// the concrete violations.
func repairPrompt(original, previous string, violations []string) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nYour previous response violated the rules:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s\n", v)
	}
	b.WriteString("\nPrevious response:\n")
	b.WriteString(previous)
	b.WriteString("\n\nRespond again with a corrected JSON object that fixes every violation.\n")
	return b.String()
}

// parseResponse extracts and strictly parses the JSON contract object.
// Markdown code fences around the object are tolerated.
func parseResponse(raw string) (*contractResponse, error) {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var resp contractResponse
	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &resp, nil
}

var (
	bracketedNumber = regexp.MustCompile(`\[\d+\]`)
	yearToken       = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	capitalisedWord = regexp.MustCompile(`\p{Lu}[\p{L}'-]+`)
)

// validate checks a parsed response against the contract and returns
// the list of violations, empty when compliant.
func (s *PolishService) validate(
	ctx context.Context,
	passage string,
	passageVec []float32,
	exemplars []domain.Exemplar,
	resp *contractResponse,
) []string {
	var violations []string

	byLabel := make(map[string]domain.Exemplar, len(exemplars))
	for _, ex := range exemplars {
		byLabel[ex.Label] = ex
	}

	checkCitations := func(where string, citations []domain.CitationRef) {
		if len(citations) == 0 {
			violations = append(violations, fmt.Sprintf("%s has no citations", where))
			return
		}
		for _, cit := range citations {
			ex, ok := byLabel[cit.Label]
			if !ok {
				violations = append(violations, fmt.Sprintf("%s cites unknown id %q", where, cit.Label))
				continue
			}
			if cit.Quote == "" {
				violations = append(violations, fmt.Sprintf("%s has an empty quote for %s", where, cit.Label))
				continue
			}
			if !strings.Contains(ex.Record.Text, cit.Quote) {
				violations = append(violations, fmt.Sprintf("%s quote %q is not a verbatim substring of %s", where, cit.Quote, cit.Label))
			}
		}
	}

	for i, d := range resp.Diagnosis {
		where := fmt.Sprintf("diagnosis %d", i+1)
		if strings.TrimSpace(d.Issue) == "" {
			violations = append(violations, where+" has an empty issue")
		}
		checkCitations(where, d.Citations)
	}

	levels := make(map[string]int)
	for _, v := range resp.Variants {
		levels[v.Level]++
	}
	if len(resp.Variants) != 2 || levels[domain.VariantLight] != 1 || levels[domain.VariantMedium] != 1 {
		violations = append(violations, `variants must be exactly one "light" and one "medium"`)
	}

	allowed := allowedTokens(passage, exemplars)
	for _, v := range resp.Variants {
		where := fmt.Sprintf("%s variant", v.Level)
		if strings.TrimSpace(v.Text) == "" {
			violations = append(violations, where+" has empty text")
			continue
		}
		checkCitations(where, v.Citations)
		violations = append(violations, bannedInsertions(where, v.Text, passage, allowed)...)
		violations = append(violations, s.fidelityViolation(ctx, where, v.Text, passageVec)...)
	}

	return violations
}

// bannedInsertions applies the heuristic checks: bracketed numeric
// citations, years absent from the passage and exemplars, and proper
// nouns absent from both.
func bannedInsertions(where, text, passage string, allowed map[string]bool) []string {
	var violations []string

	if m := bracketedNumber.FindString(text); m != "" {
		violations = append(violations, fmt.Sprintf("%s inserts a bracketed numeric citation %s", where, m))
	}

	for _, year := range yearToken.FindAllString(text, -1) {
		if !allowed[year] {
			violations = append(violations, fmt.Sprintf("%s inserts a new year %s", where, year))
		}
	}

	for _, loc := range capitalisedWord.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if sentenceInitial(text, loc[0]) {
			continue
		}
		if !allowed[strings.ToLower(word)] {
			violations = append(violations, fmt.Sprintf("%s inserts a new proper noun %q", where, word))
		}
	}
	return violations
}

// fidelityViolation rejects silent topic drift: the variant must stay
// embedding-similar to the original passage.
func (s *PolishService) fidelityViolation(ctx context.Context, where, text string, passageVec []float32) []string {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return []string{fmt.Sprintf("%s could not be checked for fidelity: %v", where, err)}
	}
	sim := vecindex.Dot(vecindex.Normalise(passageVec), vecindex.Normalise(vec))
	if sim < s.settings.FidelityFloor {
		return []string{fmt.Sprintf("%s drifts from the passage (similarity %.2f, floor %.2f)", where, sim, s.settings.FidelityFloor)}
	}
	return nil
}

// allowedTokens collects the lowercase words plus literal year tokens
// present in the passage and the exemplar texts.
func allowedTokens(passage string, exemplars []domain.Exemplar) map[string]bool {
	allowed := make(map[string]bool)
	ingest := func(text string) {
		for _, word := range strings.FieldsFunc(text, func(r rune) bool {
			return !(r == '\'' || r == '-' || isWordRune(r))
		}) {
			allowed[strings.ToLower(word)] = true
		}
		for _, year := range yearToken.FindAllString(text, -1) {
			allowed[year] = true
		}
	}
	ingest(passage)
	for _, ex := range exemplars {
		ingest(ex.Record.Text)
	}
	return allowed
}

func isWordRune(r rune) bool {
	return r >= '0' && r <= '9' ||
		r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r > 127
}

// sentenceInitial reports whether the byte offset starts the text or
// follows a sentence terminator, where capitalisation is expected.
func sentenceInitial(text string, offset int) bool {
	for i := offset - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\t', '"', '\'', '(', '[':
			continue
		case '.', '!', '?', '\n', ':':
			return true
		default:
			return false
		}
	}
	return true
}

// estimateTokens is the rough chars/4 heuristic used for budget checks.
func estimateTokens(text string) int {
	return len(text) / 4
}
