// Package citebank extracts author-year citation sentences and
// bibliography entries from source documents and maintains a dedicated
// similarity index over the citation sentences.
//
// Extraction is a pipeline of independent, best-effort pattern
// matchers. Every result carries a confidence; a document with zero
// matches is a valid, empty result, never an error.
package citebank

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/segment"
)

// Extraction is the best-effort output for one document.
type Extraction struct {
	// Citations are in-text citation sentences with parsed tags.
	Citations []domain.Citation

	// References are parsed bibliography entries; empty when no
	// bibliography section was detected.
	References []domain.ReferenceEntry
}

var (
	// narrativeCite matches "Smith (2019)" and "Smith and Jones (2020)",
	// optionally with "et al.".
	narrativeCite = regexp.MustCompile(`([A-Z][\p{L}'-]+)(?:\s+(?:and|&)\s+[A-Z][\p{L}'-]+)?(?:\s+et\s+al\.?)?\s*\((\d{4})[a-z]?\)`)

	// parentheticalGroup matches a parenthesised group that contains a
	// year; its items are validated individually by parentheticalItem.
	parentheticalGroup = regexp.MustCompile(`\(([^()]*\b\d{4}[a-z]?\b[^()]*)\)`)

	// parentheticalItem matches one "Surname, 2019" item inside a group.
	parentheticalItem = regexp.MustCompile(`^([A-Z][\p{L}'-]+)(?:\s+(?:and|&)\s+[A-Z][\p{L}'-]+)?(?:\s+et\s+al\.?)?,?\s*(\d{4})[a-z]?$`)

	// bibliographyHeading matches a bibliography section title on its
	// own line.
	bibliographyHeading = regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s+)?(references|bibliography|works cited|literature cited|参考文献)\s*$`)

	// numberedEntry matches "[3]", "3.", "3)" entry starts.
	numberedEntry = regexp.MustCompile(`^\s*(?:\[(\d+)\]|(\d+)[.)])\s+`)

	// authorInitialEntry matches "Smith, J." style entry starts.
	authorInitialEntry = regexp.MustCompile(`^[A-Z][\p{L}'-]+,\s*[A-Z]\.`)

	// entryYear pulls a plausible publication year out of an entry.
	entryYear = regexp.MustCompile(`\((\d{4})\)|\b(19\d{2}|20\d{2})\b`)

	// entrySurnames pulls leading "Surname, X." author names.
	entrySurnames = regexp.MustCompile(`([A-Z][\p{L}'-]+),\s*[A-Z]\.`)
)

// Matcher confidence tiers. Narrative citations are less ambiguous
// than parenthetical ones; a bibliography cross-reference adds trust.
const (
	confidenceNarrative     = 0.9
	confidenceParenthetical = 0.7
	confidenceCrossRefBonus = 0.1
)

// Extractor finds citation sentences and bibliography entries.
type Extractor struct {
	seg *segment.Segmenter
}

// NewExtractor creates an extractor sharing the given segmenter.
func NewExtractor(seg *segment.Segmenter) *Extractor {
	return &Extractor{seg: seg}
}

// Extract runs the matcher pipeline over a document. It never fails:
// the worst outcome is an empty Extraction.
func (e *Extractor) Extract(doc *domain.SourceDocument) Extraction {
	var out Extraction

	refs, bibPage := e.findBibliography(doc)
	out.References = refs

	// Index (surname, year) pairs for cross-referencing.
	known := make(map[string]bool)
	for _, r := range refs {
		for _, a := range r.Authors {
			known[strings.ToLower(a)+"|"+strconv.Itoa(r.Year)] = true
		}
	}

	for _, page := range doc.Pages {
		// Skip the bibliography itself: its entries are not citation
		// sentences.
		if bibPage > 0 && page.Number >= bibPage {
			continue
		}
		for _, chunk := range e.seg.Sentences(doc.Path, page.Number, page.Text) {
			if cit, ok := matchCitation(chunk.Text, known); ok {
				cit.DocumentPath = doc.Path
				cit.Page = page.Number
				out.Citations = append(out.Citations, cit)
			}
		}
	}
	return out
}

// matchCitation runs the sentence-level matchers in confidence order.
func matchCitation(sentence string, known map[string]bool) (domain.Citation, bool) {
	var authors []string
	var years []int
	confidence := 0.0

	for _, m := range narrativeCite.FindAllStringSubmatch(sentence, -1) {
		year, _ := strconv.Atoi(m[2])
		if !plausibleYear(year) {
			continue
		}
		authors = append(authors, m[1])
		years = append(years, year)
		confidence = confidenceNarrative
	}

	for _, g := range parentheticalGroup.FindAllStringSubmatch(sentence, -1) {
		matchedAny := false
		for _, item := range strings.Split(g[1], ";") {
			m := parentheticalItem.FindStringSubmatch(strings.TrimSpace(item))
			if m == nil {
				continue
			}
			year, _ := strconv.Atoi(m[2])
			if !plausibleYear(year) {
				continue
			}
			authors = append(authors, m[1])
			years = append(years, year)
			matchedAny = true
		}
		if matchedAny && confidence < confidenceParenthetical {
			confidence = confidenceParenthetical
		}
	}

	if len(authors) == 0 {
		return domain.Citation{}, false
	}

	// Cross-reference against the bibliography when one was parsed.
	for i, a := range authors {
		if known[strings.ToLower(a)+"|"+strconv.Itoa(years[i])] {
			confidence += confidenceCrossRefBonus
			break
		}
	}
	if confidence > 1 {
		confidence = 1
	}

	return domain.Citation{
		Sentence:   sentence,
		Authors:    authors,
		Years:      years,
		Confidence: confidence,
	}, true
}

// findBibliography locates the bibliography section and parses its
// entries. Returns the entries and the page the section starts on
// (0 when none was detected).
func (e *Extractor) findBibliography(doc *domain.SourceDocument) ([]domain.ReferenceEntry, int) {
	for i := len(doc.Pages) - 1; i >= 0; i-- {
		page := doc.Pages[i]
		loc := bibliographyHeading.FindStringIndex(page.Text)
		if loc == nil {
			continue
		}

		// Collect the heading's tail plus any following pages.
		var body strings.Builder
		body.WriteString(page.Text[loc[1]:])
		for j := i + 1; j < len(doc.Pages); j++ {
			body.WriteString("\n")
			body.WriteString(doc.Pages[j].Text)
		}

		entries := parseEntries(body.String())
		if len(entries) == 0 {
			continue
		}
		return entries, page.Number
	}
	return nil, 0
}

// parseEntries groups bibliography lines into entries. A new entry
// starts at a numbered marker or an author-initial pattern;
// continuation lines are appended to the current entry.
func parseEntries(body string) []domain.ReferenceEntry {
	var entries []domain.ReferenceEntry
	var current strings.Builder

	flush := func() {
		raw := strings.TrimSpace(current.String())
		current.Reset()
		if raw == "" {
			return
		}
		entries = append(entries, parseEntry(len(entries)+1, raw))
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if numberedEntry.MatchString(trimmed) || authorInitialEntry.MatchString(trimmed) {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(trimmed)
	}
	flush()
	return entries
}

// parseEntry extracts authors and year from one raw entry, best-effort.
func parseEntry(index int, raw string) domain.ReferenceEntry {
	entry := domain.ReferenceEntry{Index: index, Raw: raw}

	for _, m := range entrySurnames.FindAllStringSubmatch(raw, -1) {
		entry.Authors = append(entry.Authors, m[1])
	}

	if m := entryYear.FindStringSubmatch(raw); m != nil {
		y := m[1]
		if y == "" {
			y = m[2]
		}
		if year, err := strconv.Atoi(y); err == nil && plausibleYear(year) {
			entry.Year = year
		}
	}
	return entry
}

// plausibleYear bounds publication years to a sane range.
func plausibleYear(y int) bool {
	return y >= 1800 && y <= 2100
}
