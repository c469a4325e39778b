package domain

// SignalKind identifies which detector raised a diagnosis warning.
type SignalKind string

const (
	// SignalSemantic flags sentences far from every exemplar in
	// embedding space.
	SignalSemantic SignalKind = "semantic"

	// SignalWordRarity flags sentences built from words the corpus
	// rarely uses.
	SignalWordRarity SignalKind = "word-rarity"

	// SignalBigramRarity flags adjacent word pairs the corpus rarely uses.
	SignalBigramRarity SignalKind = "bigram-rarity"

	// SignalSyntax flags part-of-speech patterns unusual for the corpus.
	// Only produced when a syntax profiler is configured.
	SignalSyntax SignalKind = "syntax"
)

// Severity orders warning tiers for ranking. Higher values outrank
// lower ones; the tier order is semantic > phrasing > syntax > formatting.
// The order is used only for ranking, never to suppress lower tiers.
type Severity int

const (
	// SeverityFormatting is the lowest tier.
	SeverityFormatting Severity = iota + 1

	// SeveritySyntax covers part-of-speech pattern outliers.
	SeveritySyntax

	// SeverityPhrasing covers word and bigram rarity warnings.
	SeverityPhrasing

	// SeveritySemantic covers embedding-distance outliers, the highest tier.
	SeveritySemantic
)

// String returns the display name of the severity tier.
func (s Severity) String() string {
	switch s {
	case SeveritySemantic:
		return "semantic"
	case SeverityPhrasing:
		return "phrasing"
	case SeveritySyntax:
		return "syntax"
	case SeverityFormatting:
		return "formatting"
	default:
		return "unknown"
	}
}

// Warning is a single signal raised against a sentence.
type Warning struct {
	// Kind identifies the detector that raised the warning.
	Kind SignalKind

	// Severity is the ranking tier of the warning.
	Severity Severity

	// Explanation is a human-readable reason for the warning.
	Explanation string

	// ExemplarIDs lists chunk ids of supporting exemplars, if any.
	ExemplarIDs []string
}

// DiagnosisItem is the per-sentence result of a diagnosis call.
// Items are ephemeral: produced per analysis call, never persisted.
type DiagnosisItem struct {
	// Sentence is the analysed sentence text.
	Sentence string

	// Position is the sentence's ordinal position in the input, used as
	// the final (stable) ranking tie-break.
	Position int

	// Warnings holds zero or more warnings in detection order.
	Warnings []Warning
}

// TopSeverity returns the highest severity tier present among the
// item's warnings, or zero when there are none.
func (d *DiagnosisItem) TopSeverity() Severity {
	var top Severity
	for _, w := range d.Warnings {
		if w.Severity > top {
			top = w.Severity
		}
	}
	return top
}
