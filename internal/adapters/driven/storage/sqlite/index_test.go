package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

const testModel = "test-embed"

// setupTestIndex creates a fresh 3-dimensional index in a temp directory.
func setupTestIndex(t *testing.T) (*Index, string) {
	t.Helper()

	root := t.TempDir()
	idx, err := Open(context.Background(), Config{
		Root:            root,
		Model:           testModel,
		Dimensions:      3,
		CreateIfMissing: true,
	})
	require.NoError(t, err)
	require.NotNil(t, idx)
	t.Cleanup(func() { assert.NoError(t, idx.Close()) })

	return idx, root
}

// entry builds an index entry with the given chunk ID and vector.
func entry(id string, vec ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		Chunk: domain.Chunk{
			ID:     id,
			Source: "act.pdf",
			Text:   "text of " + id,
			Page:   1,
			Offset: 0,
		},
		Embedding: vec,
	}
}

func hitIDs(r domain.RetrievalResult) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.Chunk.ID
	}
	return ids
}

func TestModelSlug(t *testing.T) {
	assert.Equal(t, "nomic-embed-text", ModelSlug("nomic-embed-text"))
	assert.Equal(t, "nomic-embed-text_latest", ModelSlug("nomic-embed-text:latest"))
	assert.Equal(t, "org_model", ModelSlug("Org/Model"))
}

func TestIndexPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("/data", "mxbai-embed-large", "index.db"),
		IndexPath("/data", "mxbai-embed-large"))
}

func TestOpen_CreatesLayout(t *testing.T) {
	idx, root := setupTestIndex(t)

	assert.Equal(t, filepath.Join(root, testModel, "index.db"), idx.Path())
	_, err := os.Stat(idx.Path())
	assert.NoError(t, err)
}

func TestOpen_RequiresModel(t *testing.T) {
	_, err := Open(context.Background(), Config{Root: t.TempDir(), CreateIfMissing: true})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestOpen_MissingIndex(t *testing.T) {
	root := t.TempDir()

	_, err := Open(context.Background(), Config{Root: root, Model: testModel})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	// Nothing was created.
	_, statErr := os.Stat(filepath.Join(root, testModel))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestOpen_ModelMismatch(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	// "org/model" and "org:model" share a directory, so the recorded model
	// is what tells them apart.
	idx, err := Open(ctx, Config{Root: root, Model: "org/model", Dimensions: 3, CreateIfMissing: true})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = Open(ctx, Config{Root: root, Model: "org:model", Dimensions: 3})

	var mismatch *domain.ModelMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "org/model", mismatch.Indexed)
	assert.Equal(t, "org:model", mismatch.Configured)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestOpen_DimensionMismatch(t *testing.T) {
	idx, root := setupTestIndex(t)
	require.NoError(t, idx.Insert(context.Background(), []domain.IndexEntry{entry("a", 1, 0, 0)}))

	_, err := Open(context.Background(), Config{Root: root, Model: testModel, Dimensions: 4})

	var mismatch *domain.DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 4, mismatch.Actual)
}

func TestOpen_DimensionsFixedByFirstInsert(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	idx, err := Open(ctx, Config{Root: root, Model: testModel, CreateIfMissing: true})
	require.NoError(t, err)
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("a", 1, 2)}))
	require.NoError(t, idx.Close())

	reopened, err := Open(ctx, Config{Root: root, Model: testModel})
	require.NoError(t, err)
	defer reopened.Close()

	info, err := reopened.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Dimensions)
	assert.Equal(t, 1, info.Entries)
}

func TestIndex_QueryEmpty(t *testing.T) {
	idx, _ := setupTestIndex(t)

	result, err := idx.Query(context.Background(), []float32{1, 0, 0}, 3)

	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestIndex_InsertEmptyIsNoop(t *testing.T) {
	idx, _ := setupTestIndex(t)
	require.NoError(t, idx.Insert(context.Background(), nil))

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndex_SelfRetrieval(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	entries := []domain.IndexEntry{
		entry("a", 1, 0, 0),
		entry("b", 0, 1, 0),
		entry("c", 0, 0, 1),
		entry("d", 0.7, 0.7, 0),
	}
	require.NoError(t, idx.Insert(ctx, entries))

	for _, e := range entries {
		result, err := idx.Query(ctx, e.Embedding, 1)
		require.NoError(t, err)
		require.Len(t, result.Hits, 1)
		assert.Equal(t, e.Chunk.ID, result.Hits[0].Chunk.ID)
		assert.InDelta(t, 1.0, result.Hits[0].Score, 1e-6)
	}
}

func TestIndex_QueryOrdering(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{
		entry("far", 0, 0, 1),
		entry("near", 1, 0.1, 0),
		entry("mid", 1, 1, 0),
	}))

	result, err := idx.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"near", "mid", "far"}, hitIDs(result))
	assert.GreaterOrEqual(t, result.Hits[0].Score, result.Hits[1].Score)
	assert.GreaterOrEqual(t, result.Hits[1].Score, result.Hits[2].Score)
}

func TestIndex_QueryFewerThanK(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0)}))

	result, err := idx.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)

	result, err = idx.Query(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestIndex_QueryIdempotent(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	var entries []domain.IndexEntry
	for i := 0; i < 20; i++ {
		entries = append(entries, entry(fmt.Sprintf("c%02d", i), float32(i%3), float32(i%5), 1))
	}
	require.NoError(t, idx.Insert(ctx, entries))

	first, err := idx.Query(ctx, []float32{1, 2, 1}, 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := idx.Query(ctx, []float32{1, 2, 1}, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("first", 1, 0, 0)}))
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("second", 2, 0, 0)}))

	result, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, hitIDs(result))
}

func TestIndex_IncrementalInsert(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("b1", 1, 0, 0)}))

	before, err := idx.Query(ctx, []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, hitIDs(before))

	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("b2", 0, 1, 0)}))

	after, err := idx.Query(ctx, []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "b2"}, hitIDs(after))
	assert.Equal(t, "b2", after.Hits[0].Chunk.ID)
}

func TestIndex_DuplicatesAreKept(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	batch := []domain.IndexEntry{entry("a", 1, 0, 0)}
	require.NoError(t, idx.Insert(ctx, batch))
	require.NoError(t, idx.Insert(ctx, batch))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndex_InsertDimensionMismatch(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	err := idx.Insert(ctx, []domain.IndexEntry{
		entry("ok", 1, 0, 0),
		entry("bad", 1, 0),
	})

	var mismatch *domain.DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)

	// The batch is atomic: the valid entry was not stored either.
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndex_QueryDimensionMismatch(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0)}))

	_, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 3)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestIndex_Durable(t *testing.T) {
	idx, root := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{
		{
			Chunk:     domain.Chunk{ID: "x", Source: "act.pdf", Text: "Section 25F", Page: 17, Offset: 340},
			Embedding: []float32{0.25, -0.5, 1},
		},
	}))
	require.NoError(t, idx.Close())

	reopened, err := Open(ctx, Config{Root: root, Model: testModel, Dimensions: 3})
	require.NoError(t, err)
	defer reopened.Close()

	result, err := reopened.Query(ctx, []float32{0.25, -0.5, 1}, 1)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	got := result.Hits[0].Chunk
	assert.Equal(t, domain.Chunk{ID: "x", Source: "act.pdf", Text: "Section 25F", Page: 17, Offset: 340}, got)
}

func TestIndex_Clear(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0), entry("b", 0, 1, 0)}))

	require.NoError(t, idx.Clear(ctx))

	info, err := idx.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Entries)
	assert.Equal(t, 0, info.Dimensions)
	assert.Equal(t, testModel, info.Model)
	assert.Equal(t, domain.MetricCosine, info.Metric)

	// A cleared index takes the size of the next vector.
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("c", 1, 0, 0, 0)}))
	info, err = idx.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, info.Dimensions)
}

func TestIndex_CountSource(t *testing.T) {
	idx, _ := setupTestIndex(t)
	ctx := context.Background()

	other := entry("b1", 0, 1, 0)
	other.Chunk.Source = "bonus.txt"
	require.NoError(t, idx.Insert(ctx, []domain.IndexEntry{entry("a1", 1, 0, 0), entry("a2", 1, 1, 0), other}))

	n, err := idx.CountSource(ctx, "act.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = idx.CountSource(ctx, "bonus.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = idx.CountSource(ctx, "missing.txt")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_ConfiguredDimensionsNotRecorded(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	// The embedder guessed 3 but the model really returns 4.
	idx, err := Open(ctx, Config{Root: root, Model: testModel, Dimensions: 3, CreateIfMissing: true})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := Open(ctx, Config{Root: root, Model: testModel, Dimensions: 4})
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0, 0)}))
	info, err := reopened.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, info.Dimensions)
}

func TestOpen_StaleDimensionsOnEmptyIndexDropped(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	idx, err := Open(ctx, Config{Root: root, Model: testModel, CreateIfMissing: true})
	require.NoError(t, err)
	require.NoError(t, writeMeta(ctx, idx.db, metaDimensions, "3"))
	require.NoError(t, idx.Close())

	reopened, err := Open(ctx, Config{Root: root, Model: testModel, Dimensions: 4})
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Clear(ctx))
	require.NoError(t, reopened.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0, 0)}))
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_Close(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	idx, err := Open(ctx, Config{Root: root, Model: testModel, Dimensions: 3, CreateIfMissing: true})
	require.NoError(t, err)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	assert.ErrorIs(t, idx.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0)}), domain.ErrIndexClosed)
	_, err = idx.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	_, err = idx.Count(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
}

func TestFloat32Blob_RoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestHandle_LazyOpen(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	h := NewHandle(Config{Root: root, Model: testModel, Dimensions: 3})
	defer h.Close()

	assert.False(t, h.IsOpen())

	// Reads do not create the index.
	_, err := h.Query(ctx, []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	_, err = h.Count(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.NoError(t, h.Clear(ctx))
	assert.False(t, h.IsOpen())

	// The first write does.
	require.NoError(t, h.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0)}))
	assert.True(t, h.IsOpen())

	n, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandle_SingleConstruction(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	h := NewHandle(Config{Root: root, Model: testModel, Dimensions: 3})
	defer h.Close()

	var wg sync.WaitGroup
	results := make([]*Index, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := h.Open(ctx, true)
			assert.NoError(t, err)
			results[i] = idx
		}(i)
	}
	wg.Wait()

	for _, idx := range results {
		assert.Same(t, results[0], idx)
	}
}

func TestHandle_Close(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	h := NewHandle(Config{Root: root, Model: testModel, Dimensions: 3})

	require.NoError(t, h.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0)}))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err := h.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)

	// Committed data survives for the next handle.
	next := NewHandle(Config{Root: root, Model: testModel, Dimensions: 3})
	defer next.Close()
	info, err := next.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Entries)
}

func TestHandle_CountSource(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	h := NewHandle(Config{Root: root, Model: testModel})
	defer h.Close()

	_, err := h.CountSource(ctx, "act.pdf")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	require.NoError(t, h.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0), entry("b", 0, 1, 0)}))
	n, err := h.CountSource(ctx, "act.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHandle_ClearRecoversFromDimensionChange(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	old := NewHandle(Config{Root: root, Model: testModel, Dimensions: 3})
	require.NoError(t, old.Insert(ctx, []domain.IndexEntry{entry("a", 1, 0, 0)}))
	require.NoError(t, old.Close())

	h := NewHandle(Config{Root: root, Model: testModel, Dimensions: 4})
	defer h.Close()

	_, err := h.Count(ctx)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, h.Clear(ctx))
	require.NoError(t, h.Insert(ctx, []domain.IndexEntry{entry("b", 1, 0, 0, 0)}))

	info, err := h.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, info.Dimensions)
	assert.Equal(t, 1, info.Entries)
}
