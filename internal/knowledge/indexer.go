package knowledge

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Chunking parameters for corpus entries. Long articles are split into
// overlapping chunks so retrieval returns focused passages.
const (
	chunkSize    = 800
	chunkOverlap = 100
)

//go:embed corpus/seed.yaml
var seedCorpus []byte

// Document is one indexable knowledge chunk.
type Document struct {
	ID      string
	Title   string
	Source  string
	Region  string
	Content string
}

// CorpusEntry is one article in a corpus YAML file.
type CorpusEntry struct {
	Title   string `yaml:"title"`
	Source  string `yaml:"source"`
	Region  string `yaml:"region"`
	Content string `yaml:"content"`
}

type corpusFile struct {
	Entries []CorpusEntry `yaml:"entries"`
}

// LoadCorpus reads a corpus YAML file from disk.
func LoadCorpus(path string) ([]CorpusEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return parseCorpus(raw)
}

// DefaultCorpus returns the built-in financial literacy seed corpus.
func DefaultCorpus() ([]CorpusEntry, error) {
	return parseCorpus(seedCorpus)
}

func parseCorpus(raw []byte) ([]CorpusEntry, error) {
	var file corpusFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	for i, e := range file.Entries {
		if strings.TrimSpace(e.Content) == "" {
			return nil, fmt.Errorf("corpus entry %d (%q) has empty content", i, e.Title)
		}
		if e.Region == "" {
			file.Entries[i].Region = RegionUniversal
		}
	}
	return file.Entries, nil
}

// Indexer chunks corpus entries and writes them into the store.
type Indexer struct {
	store  *ChromemStore
	logger *zap.Logger
}

// NewIndexer builds an Indexer over the given store.
func NewIndexer(store *ChromemStore, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{store: store, logger: logger}
}

// Index splits each entry into overlapping chunks and adds them to the
// collection. Chunk IDs are deterministic so re-indexing the same
// corpus overwrites rather than duplicates.
func (ix *Indexer) Index(ctx context.Context, entries []CorpusEntry) (int, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	var docs []Document
	for _, entry := range entries {
		chunks, err := splitter.SplitText(entry.Content)
		if err != nil {
			return 0, fmt.Errorf("splitting %q: %w", entry.Title, err)
		}
		slug := slugify(entry.Title)
		for i, chunk := range chunks {
			docs = append(docs, Document{
				ID:      fmt.Sprintf("%s-%03d", slug, i),
				Title:   entry.Title,
				Source:  entry.Source,
				Region:  entry.Region,
				Content: chunk,
			})
		}
	}

	if err := ix.store.Add(ctx, docs); err != nil {
		return 0, err
	}
	ix.logger.Info("corpus indexed",
		zap.Int("entries", len(entries)),
		zap.Int("chunks", len(docs)))
	return len(docs), nil
}

// slugify lowercases a title into an id-safe slug.
func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
