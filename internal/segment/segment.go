// Package segment is the text normaliser: it splits raw page text into
// sentence chunks using script-aware boundary rules and tokenises them
// into words. Latin text splits on .!? with abbreviation and number
// guards; CJK text splits on sentence-final punctuation and is
// tokenised with dictionary-based segmentation.
//
// Segmentation never fails: a span with no recognisable boundaries is
// emitted as a single opaque chunk so downstream counts stay consistent.
package segment

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
	"github.com/google/uuid"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// DefaultMinFragmentRunes is the length below which a fragment is
// merged into a neighbouring sentence.
const DefaultMinFragmentRunes = 12

// abbreviations that must not terminate a Latin sentence.
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "etc": true, "cf": true, "al": true,
	"fig": true, "figs": true, "eq": true, "eqs": true, "sec": true,
	"ref": true, "refs": true, "no": true, "vol": true, "pp": true,
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"st": true, "vs": true, "approx": true, "ca": true,
}

// numberingPrefix matches section numbering like "3.", "2.1" or "IV.".
var numberingPrefix = regexp.MustCompile(`^(\d+(\.\d+)*\.?|[IVXLC]+\.|\([a-z0-9]+\))(\s|$)`)

var (
	cjkSegOnce sync.Once
	cjkSeg     gse.Segmenter
	cjkSegErr  error
)

// loadCJKSegmenter loads the embedded gse dictionary once per process.
func loadCJKSegmenter() (*gse.Segmenter, error) {
	cjkSegOnce.Do(func() {
		cjkSegErr = cjkSeg.LoadDict()
	})
	if cjkSegErr != nil {
		return nil, cjkSegErr
	}
	return &cjkSeg, nil
}

// Segmenter splits page text into sentence chunks and tokenises them.
// The zero value is not usable; create instances with New.
type Segmenter struct {
	minFragmentRunes int
	cjk              *gse.Segmenter
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithMinFragmentRunes sets the under-length merge threshold.
func WithMinFragmentRunes(n int) Option {
	return func(s *Segmenter) {
		if n > 0 {
			s.minFragmentRunes = n
		}
	}
}

// New creates a segmenter. The CJK dictionary is loaded on first use;
// if it cannot be loaded, CJK runs fall back to per-character tokens
// rather than failing.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{minFragmentRunes: DefaultMinFragmentRunes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sentences splits one page of text into sentence chunks. Offsets are
// rune offsets into the page text. Malformed input never errors; text
// without recognisable boundaries becomes a single opaque chunk.
func (s *Segmenter) Sentences(documentPath string, page int, text string) []domain.Chunk {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	spans := s.split(runes)
	spans = s.mergeFragments(runes, spans)

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, sp := range spans {
		raw := string(runes[sp.start:sp.end])
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:           uuid.New().String(),
			DocumentPath: documentPath,
			Page:         page,
			Start:        sp.start,
			End:          sp.end,
			Text:         trimmed,
			Tokens:       s.Tokenize(trimmed),
			Script:       Classify(trimmed),
		})
	}
	return chunks
}

// span is a half-open rune range within a page.
type span struct {
	start, end int
}

// split finds sentence boundaries. CJK terminators always end a
// sentence; Latin terminators are guarded against abbreviations,
// initials and decimal numbers.
func (s *Segmenter) split(runes []rune) []span {
	var spans []span
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case isCJKTerminator(r):
			end := i + 1
			// Pull trailing closing quotes/brackets into the sentence.
			for end < len(runes) && isClosing(runes[end]) {
				end++
			}
			spans = append(spans, span{start, end})
			start = end
			i = end - 1

		case r == '.' || r == '!' || r == '?':
			if !s.latinBoundary(runes, i) {
				continue
			}
			end := i + 1
			for end < len(runes) && isClosing(runes[end]) {
				end++
			}
			spans = append(spans, span{start, end})
			start = end
			i = end - 1

		case r == '\n':
			// A blank line is always a boundary, even without punctuation.
			if i+1 < len(runes) && runes[i+1] == '\n' {
				spans = append(spans, span{start, i})
				start = i + 2
				i++
			}
		}
	}

	if start < len(runes) {
		spans = append(spans, span{start, len(runes)})
	}
	return spans
}

// latinBoundary applies the abbreviation, initial and number guards to
// a candidate terminator at index i.
func (s *Segmenter) latinBoundary(runes []rune, i int) bool {
	// Decimal number: digit on both sides of a period.
	if runes[i] == '.' &&
		i > 0 && unicode.IsDigit(runes[i-1]) &&
		i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
		return false
	}

	// The terminator must be followed by whitespace or end of page.
	if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) && !isClosing(runes[i+1]) {
		return false
	}

	if runes[i] == '.' {
		word := strings.ToLower(trailingWord(runes, i))
		if abbreviations[word] {
			return false
		}
		// Single-letter initial such as "J." in an author name.
		if len(word) == 1 && unicode.IsLetter(runes[i-1]) && unicode.IsUpper(runes[i-1]) {
			return false
		}
	}
	return true
}

// trailingWord returns the word immediately before index i, keeping
// inner periods so "e.g." resolves to "e.g".
func trailingWord(runes []rune, i int) string {
	j := i
	for j > 0 {
		r := runes[j-1]
		if unicode.IsLetter(r) {
			j--
			continue
		}
		if r == '.' && j-1 > 0 && unicode.IsLetter(runes[j-2]) {
			j--
			continue
		}
		break
	}
	return strings.Trim(string(runes[j:i]), ".")
}

// mergeFragments merges under-length spans into a neighbour so stray
// fragments (orphaned abbreviations, list markers) do not become
// sentences of their own.
func (s *Segmenter) mergeFragments(runes []rune, spans []span) []span {
	if len(spans) < 2 {
		return spans
	}

	merged := make([]span, 0, len(spans))
	carry := -1 // start of a leading fragment waiting for its neighbour
	for _, sp := range spans {
		if carry >= 0 {
			sp.start = carry
			carry = -1
		}
		length := len(strings.TrimSpace(string(runes[sp.start:sp.end])))
		if length > 0 && length < s.minFragmentRunes {
			if len(merged) > 0 {
				// Merge into the previous sentence.
				merged[len(merged)-1].end = sp.end
			} else {
				// No previous sentence yet: merge into the next one.
				carry = sp.start
			}
			continue
		}
		merged = append(merged, sp)
	}
	if carry >= 0 && len(spans) > 0 {
		merged = append(merged, span{carry, spans[len(spans)-1].end})
	}
	return merged
}

// Tokenize splits a sentence into normalised word tokens. Latin runs
// become case-folded alphanumeric tokens; CJK runs go through
// dictionary-based segmentation.
func (s *Segmenter) Tokenize(text string) []string {
	var tokens []string
	runes := []rune(text)

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case isLatinAlnum(r):
			j := i
			for j < len(runes) && isLatinAlnum(runes[j]) {
				j++
			}
			tokens = append(tokens, strings.ToLower(string(runes[i:j])))
			i = j

		case isCJK(r):
			j := i
			for j < len(runes) && isCJK(runes[j]) {
				j++
			}
			tokens = append(tokens, s.cutCJK(string(runes[i:j]))...)
			i = j

		default:
			i++
		}
	}
	return tokens
}

// cutCJK segments a CJK run with the shared dictionary, falling back to
// per-character tokens when the dictionary is unavailable.
func (s *Segmenter) cutCJK(run string) []string {
	seg := s.cjk
	if seg == nil {
		loaded, err := loadCJKSegmenter()
		if err != nil {
			out := make([]string, 0, len(run))
			for _, r := range run {
				out = append(out, string(r))
			}
			return out
		}
		s.cjk = loaded
		seg = loaded
	}

	words := seg.Cut(run, true)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Bigrams returns adjacent-token pairs within one sentence, joined with
// a single space. Bigrams never cross sentence boundaries because the
// input is one sentence's token list.
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// Classify returns the dominant writing system of a text span.
func Classify(text string) domain.Script {
	var latin, cjk int
	for _, r := range text {
		switch {
		case isCJK(r):
			cjk++
		case unicode.IsLetter(r):
			latin++
		}
	}

	total := latin + cjk
	switch {
	case total == 0:
		return domain.ScriptLatin
	case cjk == 0:
		return domain.ScriptLatin
	case latin == 0:
		return domain.ScriptCJK
	case float64(cjk)/float64(total) >= 0.8:
		return domain.ScriptCJK
	case float64(latin)/float64(total) >= 0.8:
		return domain.ScriptLatin
	default:
		return domain.ScriptMixed
	}
}

// IsHeading reports whether a line looks like a section title: short
// and either all-caps or numbering-prefixed. Headings are excluded from
// diagnosis scoring to avoid false positives.
func IsHeading(text string, tokens []string) bool {
	if len(tokens) == 0 || len(tokens) > 8 {
		return false
	}

	trimmed := strings.TrimSpace(text)

	// Numbering prefix: "3.", "2.1", "IV.", "(a)".
	if numberingPrefix.MatchString(trimmed) {
		return true
	}

	// All-caps: every Latin letter uppercase, at least one letter.
	var letters, uppers int
	for _, r := range trimmed {
		if unicode.IsLetter(r) && !isCJK(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	return letters > 0 && letters == uppers
}

func isLatinAlnum(r rune) bool {
	return r < 0x2E80 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// isCJK covers the Han, Hiragana, Katakana and Hangul ranges plus full-width forms.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// isCJKTerminator reports sentence-final CJK punctuation.
func isCJKTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '…':
		return true
	}
	return false
}

// isClosing reports closing quotes and brackets that belong to the
// sentence they follow.
func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '」', '』', '】', '〉', '》', '”', '’':
		return true
	}
	return false
}
