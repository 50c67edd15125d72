package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/similarity"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Useful for testing and for throwaway sessions that skip persistence.
type VectorIndex struct {
	mu      sync.RWMutex
	model   string
	dims    int
	entries []storedEntry
	closed  bool
}

type storedEntry struct {
	chunk     domain.Chunk
	embedding []float32
	norm      float64
}

// NewVectorIndex creates an empty index for model. A dims of zero is fixed
// by the first insert.
func NewVectorIndex(model string, dims int) *VectorIndex {
	return &VectorIndex{model: model, dims: dims}
}

// Insert appends entries. A batch with a mismatched vector stores nothing.
func (v *VectorIndex) Insert(_ context.Context, entries []domain.IndexEntry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return domain.ErrIndexClosed
	}
	if len(entries) == 0 {
		return nil
	}

	dims := v.dims
	if dims == 0 {
		dims = len(entries[0].Embedding)
	}
	for _, e := range entries {
		if len(e.Embedding) != dims || dims == 0 {
			return &domain.DimensionMismatchError{Expected: dims, Actual: len(e.Embedding)}
		}
	}

	for _, e := range entries {
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		v.entries = append(v.entries, storedEntry{
			chunk:     e.Chunk,
			embedding: vec,
			norm:      similarity.Norm(vec),
		})
	}
	v.dims = dims
	return nil
}

// Query returns the k entries most similar to embedding.
func (v *VectorIndex) Query(_ context.Context, embedding []float32, k int) (domain.RetrievalResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return domain.RetrievalResult{}, domain.ErrIndexClosed
	}
	if len(v.entries) == 0 || k <= 0 {
		return domain.RetrievalResult{}, nil
	}
	if len(embedding) != v.dims {
		return domain.RetrievalResult{}, &domain.DimensionMismatchError{Expected: v.dims, Actual: len(embedding)}
	}

	queryNorm := similarity.Norm(embedding)
	hits := make([]domain.ScoredChunk, 0, len(v.entries))
	for _, e := range v.entries {
		hits = append(hits, domain.ScoredChunk{
			Chunk: e.chunk,
			Score: similarity.CosineWithNorms(embedding, e.embedding, queryNorm, e.norm),
		})
	}
	return domain.RetrievalResult{Hits: similarity.TopK(hits, k)}, nil
}

// Count returns the number of stored entries.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return 0, domain.ErrIndexClosed
	}
	return len(v.entries), nil
}

// CountSource returns the number of entries whose chunk came from source.
func (v *VectorIndex) CountSource(_ context.Context, source string) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return 0, domain.ErrIndexClosed
	}
	n := 0
	for _, e := range v.entries {
		if e.chunk.Source == source {
			n++
		}
	}
	return n, nil
}

// Clear removes every entry and unfixes the dimensions.
func (v *VectorIndex) Clear(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return domain.ErrIndexClosed
	}
	v.entries = nil
	v.dims = 0
	return nil
}

// Info describes the index.
func (v *VectorIndex) Info(_ context.Context) (domain.IndexInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return domain.IndexInfo{}, domain.ErrIndexClosed
	}
	return domain.IndexInfo{
		Model:      v.model,
		Dimensions: v.dims,
		Metric:     domain.MetricCosine,
		Entries:    len(v.entries),
	}, nil
}

// Close marks the index closed.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
