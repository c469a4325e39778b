package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// writeDraft writes draft text to a temp file and returns its path, so
// commands that read a file argument need no stdin plumbing.
func writeDraft(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

// Shared mocks for the command tests. setupTestServices installs a full
// happy-path set and returns a cleanup that restores the originals.

func setupTestServices() func() {
	oldLibraries := libraryManager
	oldAnalysis := analysisService
	oldPolish := polishService
	oldCitations := citationSearcher
	oldWatcher := corpusWatcher

	libraryManager = &mockLibraryManager{}
	analysisService = &mockAnalysisService{}
	polishService = &mockPolishService{}
	citationSearcher = &mockCitationSearcher{}
	corpusWatcher = &mockWatcher{}

	return func() {
		libraryManager = oldLibraries
		analysisService = oldAnalysis
		polishService = oldPolish
		citationSearcher = oldCitations
		corpusWatcher = oldWatcher
	}
}

// mockLibraryManager completes every build on the first poll.
type mockLibraryManager struct{}

func (m *mockLibraryManager) Build(_ context.Context, _, _ string) (string, error) {
	return "task-1", nil
}

func (m *mockLibraryManager) GetTask(taskID string) (*domain.Task, error) {
	if taskID != "task-1" {
		return nil, domain.ErrTaskNotFound
	}
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:        taskID,
		Kind:      "library-build",
		Library:   "thesis",
		Status:    domain.TaskDone,
		Stage:     domain.StageDone,
		Done:      3,
		Total:     3,
		StartedAt: started,
		EndedAt:   started.Add(2 * time.Second),
	}, nil
}

func (m *mockLibraryManager) CancelTask(taskID string) error {
	if taskID != "task-1" {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (m *mockLibraryManager) List(_ context.Context) ([]domain.Library, error) {
	return []domain.Library{
		{
			Name:           "thesis",
			CorpusDir:      "/corpus/thesis",
			Dimensions:     768,
			EmbeddingModel: "nomic-embed-text",
			BuiltAt:        time.Date(2025, 6, 1, 10, 0, 2, 0, time.UTC),
		},
	}, nil
}

func (m *mockLibraryManager) Remove(_ context.Context, _ string) error {
	return nil
}

type mockAnalysisService struct{}

func (m *mockAnalysisService) Diagnose(_ context.Context, _, _ string) ([]domain.DiagnosisItem, error) {
	return []domain.DiagnosisItem{
		{
			Sentence: "The paradigmatic ontology of widgets is fraught.",
			Position: 2,
			Warnings: []domain.Warning{
				{
					Kind:        domain.SignalWordRarity,
					Severity:    domain.SeverityPhrasing,
					Explanation: "3 of 7 words are rare in this corpus",
				},
			},
		},
		{Sentence: "Widgets are assembled from parts.", Position: 1},
	}, nil
}

func (m *mockAnalysisService) Scan(_ context.Context, _, _ string, _, _ int) ([]domain.ScanSentence, error) {
	return []domain.ScanSentence{
		{
			Sentence:  "Widgets are assembled from parts.",
			Position:  1,
			Alignment: 0.82,
			Exemplars: []domain.Exemplar{
				{
					Label: "C1",
					Score: 0.82,
					Record: domain.EmbeddingRecord{
						ChunkID:      "chunk-7",
						DocumentPath: "widgets.pdf",
						Page:         4,
						Text:         "Assembly of widgets proceeds from standard parts.",
					},
				},
			},
		},
	}, nil
}

type mockPolishService struct{}

func (m *mockPolishService) Polish(_ context.Context, _, passage string, _ int, generate bool) (*domain.PolishResult, error) {
	result := &domain.PolishResult{
		Passage: passage,
		Exemplars: []domain.Exemplar{
			{
				Label: "C1",
				Score: 0.79,
				Record: domain.EmbeddingRecord{
					ChunkID:      "chunk-7",
					DocumentPath: "widgets.pdf",
					Page:         4,
					Text:         "Assembly of widgets proceeds from standard parts.",
				},
			},
		},
	}
	if !generate {
		return result, nil
	}
	result.Diagnosis = []domain.GeneratedDiagnosis{
		{
			Issue:     "Passive construction unusual for this corpus",
			Citations: []domain.CitationRef{{Label: "C1", Quote: "Assembly of widgets"}},
		},
	}
	result.Variants = []domain.RewriteVariant{
		{Level: domain.VariantLight, Text: "Widgets assemble from standard parts.", Citations: []domain.CitationRef{{Label: "C1", Quote: "standard parts"}}},
		{Level: domain.VariantMedium, Text: "Assembly of widgets proceeds from standard parts.", Citations: []domain.CitationRef{{Label: "C1", Quote: "Assembly of widgets"}}},
	}
	return result, nil
}

// mockPolishServiceDegraded always fails validation and returns
// evidence only.
type mockPolishServiceDegraded struct{}

func (m *mockPolishServiceDegraded) Polish(_ context.Context, _, passage string, _ int, _ bool) (*domain.PolishResult, error) {
	return &domain.PolishResult{
		Passage: passage,
		Exemplars: []domain.Exemplar{
			{Label: "C1", Score: 0.7, Record: domain.EmbeddingRecord{DocumentPath: "widgets.pdf", Page: 4, Text: "evidence text"}},
		},
		Degraded:       true,
		DegradedReason: "backend returned invalid citations after 2 retries",
	}, fmt.Errorf("rewrite validation: %w", domain.ErrGenerationDegraded)
}

type mockCitationSearcher struct{}

func (m *mockCitationSearcher) SearchCitations(_ context.Context, _, _ string, _ int) ([]domain.CitationHit, error) {
	return []domain.CitationHit{
		{
			Citation: domain.Citation{
				Sentence:     "Smith (2019) showed that widget alignment improves throughput.",
				DocumentPath: "widgets.pdf",
				Page:         12,
				Authors:      []string{"Smith"},
				Years:        []int{2019},
				Confidence:   0.9,
			},
			Score: 0.88,
		},
	}, nil
}

// mockCitationSearcherEmpty returns no hits.
type mockCitationSearcherEmpty struct{}

func (m *mockCitationSearcherEmpty) SearchCitations(_ context.Context, _, _ string, _ int) ([]domain.CitationHit, error) {
	return nil, nil
}

// mockConfigStore is an in-memory config store.
type mockConfigStore struct {
	values map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if s, ok := m.values[key].(string); ok {
		return s
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "/tmp/exemplar-test/config.toml"
}

// mockWatcher emits a single change then closes the channel.
type mockWatcher struct{}

func (m *mockWatcher) Watch(_ context.Context, _ string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	close(ch)
	return ch, nil
}
