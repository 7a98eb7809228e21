package knowledge

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var knowledgeTracer = otel.Tracer("finsense/knowledge")

// ChromemConfig configures the persistent chromem-go index.
type ChromemConfig struct {
	// Path is the directory holding the persisted index.
	Path string

	// Compress enables gzip compression of persisted documents.
	Compress bool
}

// ChromemStore is a Store backed by an embedded chromem-go database.
// Embeddings are computed through the injected Embedder so that both
// indexing and querying share one embedding space.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewChromemStore opens (or creates) the persistent index at cfg.Path.
func NewChromemStore(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = filepath.Join(".", "data", "knowledge")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	return &ChromemStore{db: db, embedder: embedder, logger: logger}, nil
}

// embeddingFunc adapts the Embedder to chromem's callback shape.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Query returns the topN passages most similar to text whose region
// matches the requested region or the universal tag. Results keep the
// similarity ranking produced by the index.
func (s *ChromemStore) Query(ctx context.Context, text string, region string, topN int) ([]Passage, error) {
	ctx, span := knowledgeTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("region", region),
		attribute.Int("top_n", topN),
	)

	collection := s.db.GetCollection(Collection, s.embeddingFunc())
	if collection == nil {
		span.SetStatus(codes.Error, "collection not found")
		return nil, &StoreError{Op: "query", Err: ErrCollectionNotFound}
	}

	docCount := collection.Count()
	if docCount == 0 {
		span.SetStatus(codes.Error, "index empty")
		return nil, &StoreError{Op: "query", Err: ErrNotInitialized}
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &StoreError{Op: "query", Err: fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)}
	}

	// Region filtering happens after the similarity query (chromem's
	// where clause is exact-match only, no OR), so over-fetch to keep
	// enough candidates for the region cut.
	k := topN * 4
	if k > docCount {
		k = docCount
	}

	results, err := collection.QueryEmbedding(ctx, queryVec, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &StoreError{Op: "query", Err: fmt.Errorf("querying collection: %w", err)}
	}

	passages := make([]Passage, 0, topN)
	for _, r := range results {
		docRegion := r.Metadata["region"]
		if docRegion != region && docRegion != RegionUniversal {
			continue
		}
		passages = append(passages, Passage{
			Content:    r.Content,
			Title:      r.Metadata["title"],
			Source:     r.Metadata["source"],
			Region:     docRegion,
			Similarity: round4(float64(r.Similarity)),
		})
		if len(passages) == topN {
			break
		}
	}

	span.SetAttributes(attribute.Int("passages", len(passages)))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("knowledge query served",
		zap.String("region", region),
		zap.Int("passages", len(passages)))
	return passages, nil
}

// Add indexes pre-chunked documents into the corpus collection.
// Embeddings are computed in one batch before insertion.
func (s *ChromemStore) Add(ctx context.Context, docs []Document) error {
	ctx, span := knowledgeTracer.Start(ctx, "ChromemStore.Add")
	defer span.End()
	span.SetAttributes(attribute.Int("document_count", len(docs)))

	if len(docs) == 0 {
		return nil
	}

	collection, err := s.db.GetOrCreateCollection(Collection, nil, s.embeddingFunc())
	if err != nil {
		span.RecordError(err)
		return &StoreError{Op: "add", Err: fmt.Errorf("creating collection: %w", err)}
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StoreError{Op: "add", Err: fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)}
	}
	if len(vectors) != len(docs) {
		return &StoreError{Op: "add", Err: fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))}
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:      doc.ID,
			Content: doc.Content,
			Metadata: map[string]string{
				"title":  doc.Title,
				"source": doc.Source,
				"region": doc.Region,
			},
			Embedding: vectors[i],
		}
	}

	// Concurrency of 1: the embeddings are already computed above.
	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StoreError{Op: "add", Err: fmt.Errorf("adding documents: %w", err)}
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Info("indexed knowledge documents", zap.Int("count", len(docs)))
	return nil
}

// Count returns the number of indexed chunks, or zero when the
// collection does not exist yet.
func (s *ChromemStore) Count() int {
	collection := s.db.GetCollection(Collection, s.embeddingFunc())
	if collection == nil {
		return 0
	}
	return collection.Count()
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
