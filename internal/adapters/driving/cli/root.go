package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driving"
)

// version is stamped by Execute.
var version = "dev"

// Services wired in by Wire before Execute runs. Tests replace them
// with mocks; commands guard against nil for partial wiring.
var (
	configStore      driven.ConfigStore
	libraryManager   driving.LibraryManager
	analysisService  driving.AnalysisService
	polishService    driving.PolishOrchestrator
	citationSearcher driving.CitationSearcher
	corpusWatcher    CorpusWatcher

	// Active backend descriptions for the settings display.
	embeddingProvider string
	llmProvider       string

	// backendChecker pings the configured inference backends.
	backendChecker func() error
)

// CorpusWatcher is the folder-watching collaborator of the watch
// command, kept as a local interface so tests can fake it.
type CorpusWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan struct{}, error)
}

var rootCmd = &cobra.Command{
	Use:   "exemplar",
	Short: "Align draft text with a corpus of exemplar documents",
	Long: `Exemplar indexes a folder of reference documents into a library,
then diagnoses draft text against it: rare wording, unusual phrasing,
semantically off-corpus sentences. It retrieves the nearest exemplar
passages as evidence and can produce citation-bound rewrite suggestions
validated against that evidence.`,
	SilenceUsage: true,
}

// Deps carries the wired services from main into the command tree.
type Deps struct {
	Config    driven.ConfigStore
	Libraries driving.LibraryManager
	Analysis  driving.AnalysisService
	Polish    driving.PolishOrchestrator
	Citations driving.CitationSearcher
	Watcher   CorpusWatcher

	// EmbeddingProvider and LLMProvider describe the active backends
	// for the settings display.
	EmbeddingProvider string
	LLMProvider       string

	// CheckBackends pings the configured inference backends, for
	// 'settings check'.
	CheckBackends func() error
}

// Wire installs the services the commands call.
func Wire(deps Deps) {
	configStore = deps.Config
	libraryManager = deps.Libraries
	analysisService = deps.Analysis
	polishService = deps.Polish
	citationSearcher = deps.Citations
	corpusWatcher = deps.Watcher
	embeddingProvider = deps.EmbeddingProvider
	llmProvider = deps.LLMProvider
	backendChecker = deps.CheckBackends
}

// Execute runs the command tree.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}
