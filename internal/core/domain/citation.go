package domain

// Citation is an in-text citation sentence extracted from a source
// document, such as "Smith (2019) showed ..." or "... (Smith, 2019;
// Jones, 2021).".
type Citation struct {
	// Sentence is the full citation sentence text.
	Sentence string

	// DocumentPath is the owning source document.
	DocumentPath string

	// Page is the page the sentence appears on.
	Page int

	// Authors holds the parsed surnames, in order of appearance.
	Authors []string

	// Years holds the parsed publication years, parallel to Authors
	// where the pattern allowed pairing them.
	Years []int

	// Confidence is the extractor's confidence in [0, 1]. Pattern
	// matchers are best-effort; low-confidence matches are kept and
	// tagged rather than dropped.
	Confidence float64
}

// ReferenceEntry is one parsed bibliography entry.
type ReferenceEntry struct {
	// Index is the entry's ordinal position in the bibliography.
	Index int

	// Raw is the unparsed bibliography string.
	Raw string

	// Authors holds parsed surnames when extractable, otherwise nil.
	Authors []string

	// Year is the parsed publication year, or zero when not extractable.
	Year int
}

// CitationHit is a citation-bank search result.
type CitationHit struct {
	// Citation is the matched citation sentence with provenance.
	Citation Citation

	// Score is the cosine similarity to the query.
	Score float64
}
