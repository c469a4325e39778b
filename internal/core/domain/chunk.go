package domain

// Script tags classify the dominant writing system of a chunk.
// Tokenisation and sentence splitting are script-aware.
type Script string

const (
	// ScriptLatin marks chunks of Latin-script text.
	ScriptLatin Script = "latin"

	// ScriptCJK marks chunks dominated by CJK characters.
	ScriptCJK Script = "cjk"

	// ScriptMixed marks chunks with substantial amounts of both.
	ScriptMixed Script = "mixed"
)

// Chunk is a sentence or short contiguous span of a source document.
// Chunks are immutable once created and are regenerated whenever their
// owning document changes.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentPath is the owning SourceDocument identity.
	DocumentPath string

	// Page is the 1-based page number the chunk came from.
	Page int

	// Start and End are character (rune) offsets within the page text.
	Start int
	End   int

	// Text is the raw chunk text.
	Text string

	// Tokens is the normalised token list (case-folded, script-aware).
	Tokens []string

	// Script is the dominant writing system of the chunk.
	Script Script
}

// EmbeddingRecord pairs a chunk with its unit-normalised embedding
// vector. Because vectors are unit-normalised, dot product equals
// cosine similarity, in [-1, 1].
type EmbeddingRecord struct {
	// ChunkID links to the embedded chunk.
	ChunkID string

	// DocumentPath is the provenance source document.
	DocumentPath string

	// Page is the provenance page number.
	Page int

	// Text is a raw copy of the chunk text for provenance display.
	Text string
}

// DisplaySimilarity clamps a cosine similarity to [0, 1] and scales it
// to a percentage for display. Negative similarities display as 0%.
func DisplaySimilarity(cosine float64) float64 {
	if cosine < 0 {
		return 0
	}
	if cosine > 1 {
		return 100
	}
	return cosine * 100
}
