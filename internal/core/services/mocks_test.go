package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing. Known
// texts map to canned vectors; unknown texts get a deterministic
// hash-derived vector so indexes stay reproducible.
type mockEmbedder struct {
	dims    int
	model   string
	vectors map[string][]float32
	pingErr error
	embErr  error

	// onBatch, when set, runs at the start of every EmbedBatch call so
	// tests can block or observe the build mid-flight.
	onBatch func()

	mu      sync.Mutex
	batches int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims, model: "mock-embed", vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embErr != nil {
		return nil, m.embErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, m.dims)
	for i := range v {
		v[i] = float32(sum[i%len(sum)]) / 255
	}
	return v, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	if m.onBatch != nil {
		m.onBatch()
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return m.pingErr }
func (m *mockEmbedder) Close() error                 { return nil }

// mockExtractor implements driven.PageExtractor for testing. It reads
// .txt files and splits pages on form feeds.
type mockExtractor struct {
	failFor map[string]bool
}

func (m *mockExtractor) Supports(path string) bool {
	return filepath.Ext(path) == ".txt"
}

func (m *mockExtractor) ExtractPages(_ context.Context, path string) ([]domain.Page, error) {
	if m.failFor[filepath.Base(path)] {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnreadableDocument, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}

	var pages []domain.Page
	for i, text := range strings.Split(string(data), "\f") {
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return pages, nil
}

// mockManifestStore implements driven.ManifestStore for testing.
type mockManifestStore struct {
	mu        sync.Mutex
	manifests map[string]domain.Manifest
}

func newMockManifestStore() *mockManifestStore {
	return &mockManifestStore{manifests: make(map[string]domain.Manifest)}
}

func (m *mockManifestStore) Load(libraryDir string) (*domain.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.manifests[libraryDir]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := stored
	copied.Entries = make(map[string]domain.ManifestEntry, len(stored.Entries))
	for k, v := range stored.Entries {
		copied.Entries[k] = v
	}
	return &copied, nil
}

func (m *mockManifestStore) Save(libraryDir string, manifest *domain.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *manifest
	copied.Entries = make(map[string]domain.ManifestEntry, len(manifest.Entries))
	for k, v := range manifest.Entries {
		copied.Entries[k] = v
	}
	m.manifests[libraryDir] = copied
	return nil
}

// mockLLM implements driven.GenerationService for testing. Responses
// are scripted; the last one repeats when the script runs out.
type mockLLM struct {
	responses []string
	err       error

	mu      sync.Mutex
	prompts []string
}

func (m *mockLLM) Complete(_ context.Context, prompt string, _ driven.CompleteOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	m.prompts = append(m.prompts, prompt)
	i := len(m.prompts) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	if i < 0 {
		return "", fmt.Errorf("no scripted response")
	}
	return m.responses[i], nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return m.err }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) promptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) prompt(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts[i]
}

// mockSyntax implements driven.SyntaxComparator for testing.
type mockSyntax struct {
	outliers map[string]string
	err      error
}

func (m *mockSyntax) Compare(_ context.Context, sentence string) (bool, string, error) {
	if m.err != nil {
		return false, "", m.err
	}
	explanation, ok := m.outliers[sentence]
	return ok, explanation, nil
}
