// Package knowledge provides the financial-literacy knowledge store:
// similarity-ranked passage retrieval filtered by region, backed by an
// embedded chromem-go vector index built offline by the Indexer.
package knowledge

import (
	"context"
	"errors"
	"fmt"
)

// RegionUniversal tags passages relevant to every region. Queries for a
// specific region always include universal passages.
const RegionUniversal = "both"

// Collection is the index collection holding the literacy corpus.
const Collection = "financial_literacy"

// Sentinel errors for store failures the retrieval stage may degrade on.
var (
	// ErrNotInitialized is returned when the index has not been built yet.
	ErrNotInitialized = errors.New("knowledge store not initialized")

	// ErrCollectionNotFound is returned when the corpus collection is missing.
	ErrCollectionNotFound = errors.New("knowledge collection not found")

	// ErrEmbeddingFailed indicates the embedder could not be reached.
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
)

// StoreError wraps a store failure with the operation that produced it.
// The retrieval stage uses IsStoreUnavailable to decide whether a
// failure is a degradable store condition or a real bug to surface.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("knowledge store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreUnavailable reports whether err is one of the known store
// failure modes (index not built, collection missing, embedder down)
// rather than an unrelated programming error.
func IsStoreUnavailable(err error) bool {
	var se *StoreError
	if !errors.As(err, &se) {
		return false
	}
	return errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrEmbeddingFailed)
}

// Passage is one retrieved knowledge chunk.
type Passage struct {
	Content    string  `json:"content"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Region     string  `json:"region"`
	Similarity float64 `json:"similarity"`
}

// Store retrieves similarity-ranked passages for a text query.
//
// Implementations must return passages whose region metadata matches
// the given region OR carries the universal tag, ordered by similarity
// descending.
type Store interface {
	Query(ctx context.Context, text string, region string, topN int) ([]Passage, error)
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of passages for indexing.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}
