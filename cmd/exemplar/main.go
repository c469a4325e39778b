package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/exemplar-cli/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/exemplar-cli/internal/adapters/driven/extract/pdf"
	"github.com/custodia-labs/exemplar-cli/internal/adapters/driven/extract/text"
	storagefile "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/exemplar-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/exemplar-cli/internal/adapters/driven/watch"
	"github.com/custodia-labs/exemplar-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/core/services"
	"github.com/custodia-labs/exemplar-cli/internal/logger"
	"github.com/custodia-labs/exemplar-cli/internal/segment"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	librariesRoot := filepath.Join(home, ".exemplar", "libraries")

	embedSettings := loadEmbeddingSettings(configStore)
	generationSettings := loadLLMSettings(configStore)

	embedder, err := ai.CreateEmbeddingService(embedSettings)
	if err != nil {
		return fmt.Errorf("embedding backend: %w", err)
	}
	llm, err := ai.CreateGenerationService(generationSettings)
	if err != nil {
		return fmt.Errorf("generation backend: %w", err)
	}

	extractors := []driven.PageExtractor{text.NewExtractor()}
	if pdfExtractor, pdfErr := pdf.NewExtractor(); pdfErr != nil {
		logger.Warn("pdftotext not found, .pdf corpus files will be skipped: %v", pdfErr)
	} else {
		extractors = append(extractors, pdfExtractor)
	}

	// The page cache is an optimisation; run without it if it fails.
	var pages driven.PageStore
	if store, cacheErr := sqlite.NewPageStore(""); cacheErr != nil {
		logger.Warn("page cache unavailable, extraction will not be cached: %v", cacheErr)
	} else {
		pages = store
		defer store.Close()
	}

	manifests := storagefile.NewManifestStore()
	seg := segment.New()
	tasks := services.NewTaskRegistry()
	analysisSettings := loadAnalysisSettings(configStore)

	libraries := services.NewLibraryService(librariesRoot, extractors, embedder, manifests, pages, seg, tasks)
	analysis := services.NewAnalysisService(librariesRoot, manifests, embedder, nil, seg, analysisSettings)
	polish := services.NewPolishService(librariesRoot, manifests, embedder, llm, analysisSettings, generationSettings.MaxTokens)
	citations := services.NewCitationSearchService(librariesRoot, manifests, embedder, analysisSettings)
	watcher := watch.NewWatcher(watch.Config{})

	cli.Wire(cli.Deps{
		Config:            configStore,
		Libraries:         libraries,
		Analysis:          analysis,
		Polish:            polish,
		Citations:         citations,
		Watcher:           watcher,
		EmbeddingProvider: embedSettings.Provider,
		LLMProvider:       generationSettings.Provider,
		CheckBackends: func() error {
			if err := ai.ValidateEmbeddingConfig(embedSettings); err != nil {
				return fmt.Errorf("embedding backend: %w", err)
			}
			if err := ai.ValidateLLMConfig(generationSettings); err != nil {
				return fmt.Errorf("generation backend: %w", err)
			}
			return nil
		},
	})
	return cli.Execute(version)
}

// loadEmbeddingSettings reads the embedding backend configuration. The
// API key comes from the environment, never from the config file.
func loadEmbeddingSettings(cfg driven.ConfigStore) domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider:   cfg.GetString("embedding.provider"),
		BaseURL:    cfg.GetString("embedding.base_url"),
		Model:      cfg.GetString("embedding.model"),
		Dimensions: cfg.GetInt("embedding.dimensions"),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
	}
}

func loadLLMSettings(cfg driven.ConfigStore) domain.LLMSettings {
	settings := domain.LLMSettings{
		Provider:  cfg.GetString("llm.provider"),
		BaseURL:   cfg.GetString("llm.base_url"),
		Model:     cfg.GetString("llm.model"),
		MaxTokens: cfg.GetInt("llm.max_tokens"),
	}
	switch settings.Provider {
	case ai.ProviderOpenAI:
		settings.APIKey = os.Getenv("OPENAI_API_KEY")
	case ai.ProviderAnthropic:
		settings.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return settings
}

// loadAnalysisSettings overlays configured thresholds onto the defaults.
func loadAnalysisSettings(cfg driven.ConfigStore) domain.AnalysisSettings {
	settings := domain.DefaultAnalysisSettings()
	if _, ok := cfg.Get("analysis.rare_word_threshold"); ok {
		settings.RareWordThreshold = cfg.GetFloat("analysis.rare_word_threshold")
	}
	if _, ok := cfg.Get("analysis.rare_fraction_trigger"); ok {
		settings.RareFractionTrigger = cfg.GetFloat("analysis.rare_fraction_trigger")
	}
	if _, ok := cfg.Get("analysis.semantic_floor"); ok {
		settings.SemanticFloor = cfg.GetFloat("analysis.semantic_floor")
	}
	if _, ok := cfg.Get("analysis.fidelity_floor"); ok {
		settings.FidelityFloor = cfg.GetFloat("analysis.fidelity_floor")
	}
	if _, ok := cfg.Get("analysis.min_sentence_tokens"); ok {
		settings.MinSentenceTokens = cfg.GetInt("analysis.min_sentence_tokens")
	}
	if _, ok := cfg.Get("analysis.top_k"); ok {
		settings.TopK = cfg.GetInt("analysis.top_k")
	}
	if _, ok := cfg.Get("analysis.repair_retries"); ok {
		settings.RepairRetries = cfg.GetInt("analysis.repair_retries")
	}
	return settings
}
