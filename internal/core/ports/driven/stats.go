package driven

// StatsStore holds document-frequency tables for words and bigrams over
// the exemplar corpus. Each term is counted at most once per document,
// so rarity resists single-document repetition bias.
type StatsStore interface {
	// IngestDocument records the distinct words and bigrams of one
	// document. Re-ingesting the same path replaces its contribution.
	IngestDocument(documentPath string, words, bigrams []string)

	// RemoveDocument subtracts a document's contribution.
	RemoveDocument(documentPath string)

	// Rarity returns DF(term) / totalDocs, or 0 for unseen terms.
	Rarity(term string) float64

	// BigramRarity returns DF(bigram) / totalDocs, or 0 for unseen bigrams.
	BigramRarity(bigram string) float64

	// TotalDocs returns the number of ingested documents.
	TotalDocs() int

	// Clear empties the store.
	Clear()

	// Persist writes the statistics file atomically.
	Persist(path string) error

	// Load replaces the store contents from a persisted file.
	Load(path string) error
}
