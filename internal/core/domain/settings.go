package domain

// EmbeddingSettings configures the embedding backend for a session.
type EmbeddingSettings struct {
	// Provider selects the adapter: "ollama" or "openai".
	Provider string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// Dimensions is the expected vector size for the model.
	Dimensions int

	// APIKey authenticates hosted providers. Empty for local ones.
	APIKey string
}

// LLMSettings configures the generation backend for a session.
type LLMSettings struct {
	// Provider selects the adapter: "ollama", "openai" or "anthropic".
	Provider string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model is the generation model name.
	Model string

	// MaxTokens is the output budget per generation call.
	MaxTokens int

	// APIKey authenticates hosted providers. Empty for local ones.
	APIKey string
}

// AnalysisSettings holds the tunable thresholds of the diagnosis and
// alignment pipeline.
type AnalysisSettings struct {
	// RareWordThreshold is the corpus rarity below which a word or
	// bigram counts as rare (DF / totalDocs).
	RareWordThreshold float64

	// RareFractionTrigger is the fraction of rare tokens in a sentence
	// at which a rarity warning is raised.
	RareFractionTrigger float64

	// SemanticFloor is the best-exemplar similarity below which a
	// sentence is flagged as a semantic outlier.
	SemanticFloor float64

	// MinSentenceTokens excludes shorter sentences from scoring.
	MinSentenceTokens int

	// FidelityFloor is the minimum similarity a rewrite variant must
	// keep to the original passage.
	FidelityFloor float64

	// TopK is the default exemplar retrieval depth.
	TopK int

	// RepairRetries bounds the "fix to comply" attempts after a
	// generation contract violation.
	RepairRetries int
}

// DefaultAnalysisSettings returns the calibrated defaults.
func DefaultAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{
		RareWordThreshold:   0.1,
		RareFractionTrigger: 0.35,
		SemanticFloor:       0.55,
		MinSentenceTokens:   5,
		FidelityFloor:       0.6,
		TopK:                5,
		RepairRetries:       2,
	}
}
