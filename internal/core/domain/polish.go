package domain

// Exemplar is a retrieved corpus chunk used as rewrite evidence. The
// orchestrator labels exemplars C1..Ck in score order; generated output
// may only cite those labels.
type Exemplar struct {
	// Label is the citation id, "C1".."Ck".
	Label string

	// Record is the underlying embedding record with provenance.
	Record EmbeddingRecord

	// Score is the cosine similarity to the passage.
	Score float64
}

// CitationRef is a citation inside a generated diagnosis entry or
// rewrite variant. Quote must be a verbatim substring of the labelled
// exemplar's stored text; the validator enforces this mechanically.
type CitationRef struct {
	// Label references an exemplar by its C-label.
	Label string `json:"id"`

	// Quote is the verbatim supporting excerpt.
	Quote string `json:"quote"`
}

// GeneratedDiagnosis is one evidence-backed observation about the passage.
type GeneratedDiagnosis struct {
	// Issue describes what deviates from the exemplar corpus.
	Issue string `json:"issue"`

	// Citations ground the observation in exemplar text.
	Citations []CitationRef `json:"citations"`
}

// Rewrite severity levels. Every compliant response carries exactly one
// variant of each.
const (
	VariantLight  = "light"
	VariantMedium = "medium"
)

// RewriteVariant is one generated rewrite of the passage.
type RewriteVariant struct {
	// Level is "light" or "medium".
	Level string `json:"level"`

	// Text is the rewritten passage.
	Text string `json:"text"`

	// Citations ground the rewrite in exemplar text.
	Citations []CitationRef `json:"citations"`
}

// PolishResult is the outcome of an alignment request. When Degraded is
// true the generation backend never produced a compliant rewrite and
// only the retrieval evidence is populated; a non-compliant rewrite is
// never surfaced.
type PolishResult struct {
	// Passage is the input passage.
	Passage string

	// Exemplars are the retrieved evidence chunks, labelled C1..Ck.
	Exemplars []Exemplar

	// Diagnosis holds the generated, validated observations.
	Diagnosis []GeneratedDiagnosis

	// Variants holds the validated rewrites, one light and one medium.
	Variants []RewriteVariant

	// Degraded is true when no validated rewrite is available.
	Degraded bool

	// DegradedReason explains why the result is evidence-only.
	DegradedReason string
}

// ScanSentence is the per-sentence result of a retrieval-only scan.
type ScanSentence struct {
	// Sentence is the scanned sentence text.
	Sentence string

	// Position is the sentence's ordinal position in the input.
	Position int

	// Alignment is the best exemplar cosine similarity, or zero when
	// the sentence was excluded from scoring.
	Alignment float64

	// Exemplars are the top-k nearest exemplars for the sentence.
	Exemplars []Exemplar
}
