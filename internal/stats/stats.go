// Package stats is the corpus statistics store: document-frequency
// tables for words and bigrams over the exemplar set. Document
// frequency counts distinct documents containing a term, never raw
// occurrences, so a single repetitive paper cannot make a term look
// common.
package stats

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/custodia-labs/exemplar-cli/internal/atomicfile"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.StatsStore = (*Store)(nil)

// Store keeps per-document distinct term sets and the DF tables derived
// from them. The per-document sets are what gets persisted, so a
// removed document's contribution can be subtracted exactly.
type Store struct {
	mu         sync.RWMutex
	docWords   map[string][]string
	docBigrams map[string][]string
	wordDF     map[string]int
	bigramDF   map[string]int
}

// New creates an empty statistics store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.docWords = make(map[string][]string)
	s.docBigrams = make(map[string][]string)
	s.wordDF = make(map[string]int)
	s.bigramDF = make(map[string]int)
}

// IngestDocument records the distinct words and bigrams of one
// document. Repetition within the document does not matter: each term
// counts at most once. Re-ingesting a path replaces its contribution.
func (s *Store) IngestDocument(documentPath string, words, bigrams []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(documentPath)

	ws := distinct(words)
	bs := distinct(bigrams)
	s.docWords[documentPath] = ws
	s.docBigrams[documentPath] = bs
	for _, w := range ws {
		s.wordDF[w]++
	}
	for _, b := range bs {
		s.bigramDF[b]++
	}
}

// RemoveDocument subtracts a document's DF contribution.
func (s *Store) RemoveDocument(documentPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(documentPath)
}

func (s *Store) removeLocked(documentPath string) {
	for _, w := range s.docWords[documentPath] {
		if s.wordDF[w]--; s.wordDF[w] <= 0 {
			delete(s.wordDF, w)
		}
	}
	for _, b := range s.docBigrams[documentPath] {
		if s.bigramDF[b]--; s.bigramDF[b] <= 0 {
			delete(s.bigramDF, b)
		}
	}
	delete(s.docWords, documentPath)
	delete(s.docBigrams, documentPath)
}

// Rarity returns DF(term) / totalDocs, or 0 for unseen terms.
func (s *Store) Rarity(term string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rarity(s.wordDF[term], len(s.docWords))
}

// BigramRarity returns DF(bigram) / totalDocs, or 0 for unseen bigrams.
func (s *Store) BigramRarity(bigram string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rarity(s.bigramDF[bigram], len(s.docWords))
}

func rarity(df, total int) float64 {
	if total == 0 || df == 0 {
		return 0
	}
	return float64(df) / float64(total)
}

// TotalDocs returns the number of ingested documents.
func (s *Store) TotalDocs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docWords)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// statsFileVersion guards the persisted encoding.
const statsFileVersion = 1

// docEntry is the persisted per-document record. Entries and their
// terms are sorted so identical contents always encode to identical
// bytes.
type docEntry struct {
	Path    string
	Words   []string
	Bigrams []string
}

type statsFile struct {
	Version int
	Docs    []docEntry
}

// Persist writes the statistics file atomically.
func (s *Store) Persist(path string) error {
	s.mu.RLock()
	file := statsFile{Version: statsFileVersion}
	for p, ws := range s.docWords {
		entry := docEntry{
			Path:    p,
			Words:   append([]string(nil), ws...),
			Bigrams: append([]string(nil), s.docBigrams[p]...),
		}
		sort.Strings(entry.Words)
		sort.Strings(entry.Bigrams)
		file.Docs = append(file.Docs, entry)
	}
	s.mu.RUnlock()

	sort.Slice(file.Docs, func(i, j int) bool { return file.Docs[i].Path < file.Docs[j].Path })

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(file); err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write statistics: %w", err)
	}
	return nil
}

// Load replaces the store contents from a persisted file. A damaged
// file surfaces domain.ErrIndexCorrupt.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	var file statsFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&file); err != nil {
		return fmt.Errorf("%w: decode statistics: %v", domain.ErrIndexCorrupt, err)
	}
	if file.Version != statsFileVersion {
		return fmt.Errorf("%w: statistics version %d, want %d", domain.ErrIndexCorrupt, file.Version, statsFileVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for _, d := range file.Docs {
		s.docWords[d.Path] = d.Words
		s.docBigrams[d.Path] = d.Bigrams
		for _, w := range d.Words {
			s.wordDF[w]++
		}
		for _, b := range d.Bigrams {
			s.bigramDF[b]++
		}
	}
	return nil
}

// distinct returns the unique values preserving first-seen order.
func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
