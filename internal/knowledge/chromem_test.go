package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns fixed vectors per text so similarity ranking is
// fully deterministic in tests.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestStore(t *testing.T, emb Embedder) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, emb, nil)
	require.NoError(t, err)
	return store
}

func TestChromemStore_QueryFiltersByRegion(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"sip basics":   {1, 0, 0},
		"roth ira":     {0.9, 0.1, 0},
		"budget rule":  {0.8, 0.2, 0},
		"ppf lock-in":  {0, 1, 0},
		"how to save?": {1, 0, 0},
	}}
	store := newTestStore(t, emb)

	ctx := context.Background()
	require.NoError(t, store.Add(ctx, []Document{
		{ID: "a", Title: "SIP", Source: "s", Region: "india", Content: "sip basics"},
		{ID: "b", Title: "Roth", Source: "s", Region: "us", Content: "roth ira"},
		{ID: "c", Title: "Budget", Source: "s", Region: RegionUniversal, Content: "budget rule"},
		{ID: "d", Title: "PPF", Source: "s", Region: "india", Content: "ppf lock-in"},
	}))

	passages, err := store.Query(ctx, "how to save?", "india", 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)

	// US-only passage is excluded even though it ranks second by
	// similarity; the universal passage takes its place.
	assert.Equal(t, "sip basics", passages[0].Content)
	assert.Equal(t, "budget rule", passages[1].Content)
	assert.GreaterOrEqual(t, passages[0].Similarity, passages[1].Similarity)
	for _, p := range passages {
		assert.NotEqual(t, "us", p.Region)
	}
}

func TestChromemStore_QueryMissingCollection(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})

	_, err := store.Query(context.Background(), "anything", "us", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.True(t, IsStoreUnavailable(err))
}

func TestChromemStore_QueryEmbedderDown(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newTestStore(t, emb)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, []Document{
		{ID: "a", Title: "T", Source: "s", Region: "india", Content: "text"},
	}))

	emb.err = errors.New("connection refused")
	_, err := store.Query(ctx, "query", "india", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.True(t, IsStoreUnavailable(err))
}

func TestIsStoreUnavailable_UnrelatedError(t *testing.T) {
	assert.False(t, IsStoreUnavailable(errors.New("boom")))
	assert.False(t, IsStoreUnavailable(&StoreError{Op: "add", Err: errors.New("bad input")}))
	assert.False(t, IsStoreUnavailable(nil))
}

func TestIndexer_DeterministicIDs(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	ix := NewIndexer(store, nil)
	ctx := context.Background()

	entries := []CorpusEntry{
		{Title: "Emergency Fund", Source: "Seed Corpus", Region: "both", Content: "Keep three to six months of expenses in cash."},
		{Title: "SIP Basics", Source: "Seed Corpus", Region: "india", Content: "Invest a fixed amount monthly."},
	}

	n, err := ix.Index(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, store.Count())

	// Re-indexing the same corpus overwrites by ID instead of duplicating.
	_, err = ix.Index(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())
}

func TestDefaultCorpus(t *testing.T) {
	entries, err := DefaultCorpus()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	regions := map[string]bool{}
	for _, e := range entries {
		assert.NotEmpty(t, e.Title)
		assert.NotEmpty(t, e.Content)
		regions[e.Region] = true
	}
	assert.True(t, regions["india"])
	assert.True(t, regions["us"])
	assert.True(t, regions[RegionUniversal])
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "401k-plan-guide", slugify("401k Plan Guide"))
	assert.Equal(t, "elss-and-section-80c", slugify("ELSS and Section 80C"))
}
