package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/exemplar-cli/internal/citebank"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driving"
	"github.com/custodia-labs/exemplar-cli/internal/logger"
	"github.com/custodia-labs/exemplar-cli/internal/segment"
	"github.com/custodia-labs/exemplar-cli/internal/stats"
	"github.com/custodia-labs/exemplar-cli/internal/vecindex"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryManager = (*LibraryService)(nil)

const (
	taskKindBuild = "library-build"

	// embedBatchSize bounds one EmbedBatch call; cancellation is polled
	// between batches.
	embedBatchSize = 32
)

// LibraryService owns library lifecycle: incremental corpus builds as
// cancelable background tasks, listing and removal. Builds are
// single-flight per library; a second request is rejected, not queued.
type LibraryService struct {
	rootDir    string
	extractors []driven.PageExtractor
	embedder   driven.EmbeddingService
	manifests  driven.ManifestStore
	pages      driven.PageStore
	seg        *segment.Segmenter
	citations  *citebank.Extractor
	tasks      *TaskRegistry

	admit chan struct{}
}

// NewLibraryService creates the library manager. The page store is
// optional - when nil, extraction is never cached across builds.
func NewLibraryService(
	rootDir string,
	extractors []driven.PageExtractor,
	embedder driven.EmbeddingService,
	manifests driven.ManifestStore,
	pages driven.PageStore,
	seg *segment.Segmenter,
	tasks *TaskRegistry,
) *LibraryService {
	admit := make(chan struct{}, 1)
	admit <- struct{}{}
	return &LibraryService{
		rootDir:    rootDir,
		extractors: extractors,
		embedder:   embedder,
		manifests:  manifests,
		pages:      pages,
		seg:        seg,
		citations:  citebank.NewExtractor(seg),
		tasks:      tasks,
		admit:      admit,
	}
}

// Build starts an incremental rebuild of the library from the corpus
// folder. An empty corpusDir reuses the folder recorded by the previous
// build.
func (s *LibraryService) Build(ctx context.Context, library, corpusDir string) (string, error) {
	if library == "" || strings.ContainsAny(library, `/\`) {
		return "", fmt.Errorf("%w: library name %q", domain.ErrInvalidInput, library)
	}
	if s.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	dir := filepath.Join(s.rootDir, library)
	if corpusDir == "" {
		manifest, err := s.manifests.Load(dir)
		if err != nil {
			return "", fmt.Errorf("resolve corpus folder: %w", err)
		}
		corpusDir = manifest.CorpusDir
	}
	info, err := os.Stat(corpusDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: corpus folder %q", domain.ErrInvalidInput, corpusDir)
	}

	if err := s.embedder.Ping(ctx); err != nil {
		return "", fmt.Errorf("%w: embedding backend: %v", domain.ErrBackendUnavailable, err)
	}

	// Admission and task registration are serialised so two concurrent
	// Build calls cannot both pass the single-flight check.
	<-s.admit
	defer func() { s.admit <- struct{}{} }()

	if s.tasks.Running(taskKindBuild, library) {
		return "", fmt.Errorf("%w: library %q", domain.ErrBuildInProgress, library)
	}

	handle := s.tasks.Start(taskKindBuild, library)
	go s.runBuild(handle, library, corpusDir)
	return handle.ID(), nil
}

// GetTask returns a snapshot of the task.
func (s *LibraryService) GetTask(taskID string) (*domain.Task, error) {
	return s.tasks.Get(taskID)
}

// CancelTask requests cooperative cancellation of a running task.
func (s *LibraryService) CancelTask(taskID string) error {
	return s.tasks.Cancel(taskID)
}

// List returns the libraries known on disk, sorted by name.
func (s *LibraryService) List(_ context.Context) ([]domain.Library, error) {
	entries, err := os.ReadDir(s.rootDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Library{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read libraries root: %w", err)
	}

	libraries := []domain.Library{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := s.manifests.Load(filepath.Join(s.rootDir, entry.Name()))
		if err != nil {
			logger.Debug("Skipping %s: %v", entry.Name(), err)
			continue
		}
		libraries = append(libraries, domain.Library{
			Name:           entry.Name(),
			CorpusDir:      manifest.CorpusDir,
			Dimensions:     manifest.Dimensions,
			EmbeddingModel: manifest.EmbeddingModel,
			BuiltAt:        manifest.BuiltAt,
		})
	}
	sort.Slice(libraries, func(i, j int) bool { return libraries[i].Name < libraries[j].Name })
	return libraries, nil
}

// Remove deletes a library and its artifacts.
func (s *LibraryService) Remove(_ context.Context, library string) error {
	if library == "" || strings.ContainsAny(library, `/\`) {
		return fmt.Errorf("%w: library name %q", domain.ErrInvalidInput, library)
	}
	if s.tasks.Running(taskKindBuild, library) {
		return fmt.Errorf("%w: library %q", domain.ErrBuildInProgress, library)
	}

	dir := filepath.Join(s.rootDir, library)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("library %q: %w", library, domain.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove library: %w", err)
	}
	logger.Info("Removed library %s", library)
	return nil
}

// runBuild drives one build task to a terminal state.
func (s *LibraryService) runBuild(handle *TaskHandle, library, corpusDir string) {
	err := s.build(handle, library, corpusDir)
	switch {
	case err == nil:
		handle.Finish()
	case errors.Is(err, context.Canceled):
		logger.Info("Build canceled for %s, prior artifacts preserved", library)
		handle.Cancelled()
	default:
		logger.Warn("Build failed for %s: %v", library, err)
		handle.Fail(err)
	}
}

// docWork carries one document through the build stages.
type docWork struct {
	file    corpusFile
	hash    string
	replace bool
	skip    bool
	pages   []domain.Page
	chunks  []domain.Chunk
	cites   []domain.Citation
}

// corpusFile is one supported file found in the corpus folder.
type corpusFile struct {
	rel       string
	abs       string
	size      int64
	modTime   time.Time
	extractor driven.PageExtractor
}

// build runs the staged pipeline: diff the corpus against the manifest,
// then extract, normalise, embed and citation-scan the changed
// documents. Nothing is persisted on cancellation or failure; a build
// with zero changes persists nothing at all, so rebuilding an unchanged
// corpus leaves byte-identical artifacts.
//
//nolint:gocyclo // Orchestration function with necessary sequential stages
func (s *LibraryService) build(handle *TaskHandle, library, corpusDir string) error {
	ctx := handle.Ctx()
	dir := filepath.Join(s.rootDir, library)

	// Load prior artifacts. Absence means a first build; damage means a
	// full rebuild, never a partial patch.
	manifest := domain.NewManifest()
	var st driven.StatsStore = stats.New()
	var idx driven.VectorIndex = vecindex.New()
	bank := citebank.NewBank()

	prior, err := openArtifacts(s.manifests, s.rootDir, library)
	switch {
	case err == nil:
		manifest, st, idx, bank = prior.manifest, prior.stats, prior.index, prior.bank
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("No prior artifacts for %s, building from scratch", library)
	case errors.Is(err, domain.ErrIndexCorrupt):
		logger.Warn("Artifacts for %s are damaged, rebuilding from scratch: %v", library, err)
	default:
		return err
	}

	// A model or dimensionality change invalidates every stored vector.
	dims := s.embedder.Dimensions()
	model := s.embedder.ModelName()
	if manifest.EmbeddingModel != "" && (manifest.EmbeddingModel != model || manifest.Dimensions != dims) {
		logger.Info("Embedding model changed (%s/%d -> %s/%d), full rebuild of %s",
			manifest.EmbeddingModel, manifest.Dimensions, model, dims, library)
		manifest = domain.NewManifest()
		st.Clear()
		idx.Reset(dims)
		bank.Reset(dims)
	}

	files, err := s.scanCorpus(corpusDir)
	if err != nil {
		return err
	}

	// Diff against the manifest: size+mtime fast path, content hash
	// fallback so a touched-but-identical file is not reprocessed.
	present := make(map[string]bool, len(files))
	var work []*docWork
	touched := false
	for _, f := range files {
		present[f.rel] = true
		entry, known := manifest.Entries[f.rel]
		if known && entry.Unchanged(f.size, f.modTime) {
			continue
		}
		hash, err := hashFile(f.abs)
		if err != nil {
			logger.Warn("Skipping %s: %v", f.rel, err)
			continue
		}
		if known && entry.ContentHash == hash {
			entry.Size = f.size
			entry.ModTime = f.modTime
			manifest.Entries[f.rel] = entry
			touched = true
			continue
		}
		work = append(work, &docWork{file: f, hash: hash, replace: known})
	}

	var removed []string
	for path := range manifest.Entries {
		if !present[path] {
			removed = append(removed, path)
		}
	}
	sort.Strings(removed)

	if len(work) == 0 && len(removed) == 0 && !touched {
		logger.Info("Library %s is up to date (%d documents)", library, len(manifest.Entries))
		return nil
	}
	logger.Info("Building %s: %d changed, %d removed", library, len(work), len(removed))

	// Removed documents are subtracted before anything new is added.
	for _, path := range removed {
		st.RemoveDocument(path)
		if _, err := idx.RemoveDocument(ctx, path); err != nil {
			return fmt.Errorf("remove %s from index: %w", path, err)
		}
		bank.RemoveDocument(path)
		delete(manifest.Entries, path)
		if s.pages != nil {
			if err := s.pages.DeleteDocument(ctx, path); err != nil {
				logger.Debug("Page cache delete for %s: %v", path, err)
			}
		}
	}

	if err := s.extractStage(ctx, handle, work); err != nil {
		return err
	}
	if err := s.normaliseStage(ctx, handle, work, st, idx, bank); err != nil {
		return err
	}
	if err := s.embedStage(ctx, handle, work, idx, dims); err != nil {
		return err
	}
	if err := s.citationStages(ctx, handle, work, bank, dims); err != nil {
		return err
	}

	for _, w := range work {
		if w.skip {
			continue
		}
		manifest.Entries[w.file.rel] = domain.ManifestEntry{
			Size:        w.file.size,
			ModTime:     w.file.modTime,
			ContentHash: w.hash,
			Pages:       len(w.pages),
			Chunks:      len(w.chunks),
		}
	}
	manifest.Version = domain.ManifestVersion
	manifest.CorpusDir = corpusDir
	manifest.Dimensions = dims
	manifest.EmbeddingModel = model
	manifest.BuiltAt = time.Now()

	// Last cancellation point before the atomic-replace step. The
	// manifest is written last: it is the commit record for the build.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Persist(filepath.Join(dir, statsFile)); err != nil {
		return fmt.Errorf("persist statistics: %w", err)
	}
	if err := idx.Persist(filepath.Join(dir, indexVectorFile), filepath.Join(dir, indexProvFile)); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	if err := bank.Persist(filepath.Join(dir, citationVectorFile), filepath.Join(dir, citationProvFile)); err != nil {
		return fmt.Errorf("persist citation bank: %w", err)
	}
	if err := s.manifests.Save(dir, manifest); err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}

	logger.Info("Build complete for %s: %d documents, %d exemplars, %d citations",
		library, len(manifest.Entries), idx.Len(), bank.Len())
	return nil
}

// extractStage turns each changed document into page-tagged text.
// Unreadable documents are logged and skipped, never fatal.
func (s *LibraryService) extractStage(ctx context.Context, handle *TaskHandle, work []*docWork) error {
	handle.Stage(domain.StageExtract, len(work))
	for i, w := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		pages, err := s.extractPages(ctx, w)
		if err != nil {
			logger.Warn("Skipping %s: %v", w.file.rel, err)
			w.skip = true
		} else {
			w.pages = pages
		}
		handle.Progress(i+1, w.file.rel)
	}
	return nil
}

// extractPages reads a document's pages, via the page cache when one is
// configured and the content hash matches.
func (s *LibraryService) extractPages(ctx context.Context, w *docWork) ([]domain.Page, error) {
	if s.pages != nil {
		pages, ok, err := s.pages.GetPages(ctx, w.file.rel, w.hash)
		if err != nil {
			logger.Debug("Page cache read for %s: %v", w.file.rel, err)
		} else if ok {
			return pages, nil
		}
	}

	pages, err := w.file.extractor.ExtractPages(ctx, w.file.abs)
	if err != nil {
		return nil, err
	}

	if s.pages != nil {
		if err := s.pages.PutPages(ctx, w.file.rel, w.hash, pages); err != nil {
			logger.Debug("Page cache write for %s: %v", w.file.rel, err)
		}
	}
	return pages, nil
}

// normaliseStage segments pages into chunks and refreshes the
// statistics store. Replaced documents have their old index and bank
// records dropped here, just before their new contribution lands.
func (s *LibraryService) normaliseStage(
	ctx context.Context,
	handle *TaskHandle,
	work []*docWork,
	st driven.StatsStore,
	idx driven.VectorIndex,
	bank *citebank.Bank,
) error {
	handle.Stage(domain.StageNormalise, len(work))
	for i, w := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.skip {
			continue
		}

		if w.replace {
			if _, err := idx.RemoveDocument(ctx, w.file.rel); err != nil {
				return fmt.Errorf("remove %s from index: %w", w.file.rel, err)
			}
			bank.RemoveDocument(w.file.rel)
		}

		var words, bigrams []string
		for _, page := range w.pages {
			for _, chunk := range s.seg.Sentences(w.file.rel, page.Number, page.Text) {
				w.chunks = append(w.chunks, chunk)
				words = append(words, chunk.Tokens...)
				bigrams = append(bigrams, segment.Bigrams(chunk.Tokens)...)
			}
		}
		st.IngestDocument(w.file.rel, words, bigrams)
		handle.Progress(i+1, w.file.rel)
	}
	return nil
}

// embedStage embeds all new chunks in batches and adds them to the
// exemplar index. Embedding failures are fatal: a half-embedded
// document must not be committed.
func (s *LibraryService) embedStage(
	ctx context.Context,
	handle *TaskHandle,
	work []*docWork,
	idx driven.VectorIndex,
	dims int,
) error {
	var records []domain.EmbeddingRecord
	var texts []string
	for _, w := range work {
		if w.skip {
			continue
		}
		for _, chunk := range w.chunks {
			records = append(records, domain.EmbeddingRecord{
				ChunkID:      chunk.ID,
				DocumentPath: chunk.DocumentPath,
				Page:         chunk.Page,
				Text:         chunk.Text,
			})
			texts = append(texts, chunk.Text)
		}
	}

	batches := (len(texts) + embedBatchSize - 1) / embedBatchSize
	handle.Stage(domain.StageEmbed, batches)

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lo := b * embedBatchSize
		hi := min(lo+embedBatchSize, len(texts))

		vectors, err := s.embedder.EmbedBatch(ctx, texts[lo:hi])
		if err != nil {
			return fmt.Errorf("embed batch %d: %w", b+1, err)
		}
		for i, vec := range vectors {
			if len(vec) != dims {
				return fmt.Errorf("%w: backend returned %d values, library uses %d", domain.ErrDimensionMismatch, len(vec), dims)
			}
			if err := idx.Add(ctx, records[lo+i], vec); err != nil {
				return fmt.Errorf("index chunk: %w", err)
			}
		}
		handle.Progress(b+1, fmt.Sprintf("%d/%d chunks", hi, len(texts)))
	}
	return nil
}

// citationStages extracts citation sentences from the changed documents
// and embeds them into the citation bank.
func (s *LibraryService) citationStages(
	ctx context.Context,
	handle *TaskHandle,
	work []*docWork,
	bank *citebank.Bank,
	dims int,
) error {
	handle.Stage(domain.StageCitationScan, len(work))
	var citations []domain.Citation
	for i, w := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.skip {
			continue
		}
		extraction := s.citations.Extract(&domain.SourceDocument{Path: w.file.rel, Pages: w.pages})
		w.cites = extraction.Citations
		citations = append(citations, extraction.Citations...)
		handle.Progress(i+1, w.file.rel)
	}

	batches := (len(citations) + embedBatchSize - 1) / embedBatchSize
	handle.Stage(domain.StageCitationEmbed, batches)

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lo := b * embedBatchSize
		hi := min(lo+embedBatchSize, len(citations))

		texts := make([]string, hi-lo)
		for i, cit := range citations[lo:hi] {
			texts[i] = cit.Sentence
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed citation batch %d: %w", b+1, err)
		}
		for i, vec := range vectors {
			if len(vec) != dims {
				return fmt.Errorf("%w: backend returned %d values, library uses %d", domain.ErrDimensionMismatch, len(vec), dims)
			}
			if err := bank.Add(citations[lo+i], vec); err != nil {
				return fmt.Errorf("bank citation: %w", err)
			}
		}
		handle.Progress(b+1, fmt.Sprintf("%d/%d citations", hi, len(citations)))
	}
	return nil
}

// scanCorpus walks the corpus folder and returns the supported files in
// deterministic path order. Hidden files and folders are ignored.
func (s *LibraryService) scanCorpus(corpusDir string) ([]corpusFile, error) {
	var files []corpusFile

	err := filepath.WalkDir(corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != corpusDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		extractor := s.extractorFor(path)
		if extractor == nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(corpusDir, path)
		if err != nil {
			return err
		}
		files = append(files, corpusFile{
			rel:       filepath.ToSlash(rel),
			abs:       path,
			size:      info.Size(),
			modTime:   info.ModTime(),
			extractor: extractor,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus folder: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// extractorFor returns the first extractor supporting the path, or nil.
func (s *LibraryService) extractorFor(path string) driven.PageExtractor {
	for _, e := range s.extractors {
		if e.Supports(path) {
			return e
		}
	}
	return nil
}

// hashFile returns the hex SHA-256 of the file bytes.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
