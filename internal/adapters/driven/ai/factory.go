// Package ai provides factory functions for creating inference service
// adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/exemplar-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Provider names accepted in settings.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// CreateEmbeddingService creates the embedding service selected by
// settings. Returns nil when no provider is configured: analysis then
// runs without the semantic signal and builds are rejected up front.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case "":
		return nil, nil

	case ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case ProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateGenerationService creates the generation service selected by
// settings. Returns nil when no provider is configured: polish then
// degrades to evidence-only results.
func CreateGenerationService(settings domain.LLMSettings) (driven.GenerationService, error) {
	switch settings.Provider {
	case "":
		return nil, nil

	case ProviderOllama:
		return ollamallm.NewGenerationService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case ProviderOpenAI:
		return openaillm.NewGenerationService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case ProviderAnthropic:
		return anthropicllm.NewGenerationService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", settings.Provider)
	}
}

// ValidateEmbeddingConfig creates the configured embedding service and
// pings it. Intended for settings changes, so a bad key or endpoint is
// caught when written rather than on the first build.
func ValidateEmbeddingConfig(settings domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates the configured generation service and pings it.
func ValidateLLMConfig(settings domain.LLMSettings) error {
	svc, err := CreateGenerationService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
