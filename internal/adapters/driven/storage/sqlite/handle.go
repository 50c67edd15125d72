package sqlite

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Handle implements the interface.
var _ driven.VectorIndex = (*Handle)(nil)

// Handle is the single process-wide entry point to the index of one
// embedding model. The underlying Index is opened on first use, exactly
// once, and stays open until Close.
//
// Writes create the index when it is missing; reads report
// domain.ErrIndexNotFound instead. A failed open is not cached, so a read
// that fails before the first ingestion succeeds once the index exists.
type Handle struct {
	cfg Config

	mu     sync.Mutex
	index  *Index
	closed bool
}

// NewHandle creates a handle. No I/O happens until the first call.
func NewHandle(cfg Config) *Handle {
	return &Handle{cfg: cfg}
}

// Open returns the underlying index, opening it if needed.
func (h *Handle) Open(ctx context.Context, create bool) (*Index, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, domain.ErrIndexClosed
	}
	if h.index != nil {
		return h.index, nil
	}

	cfg := h.cfg
	cfg.CreateIfMissing = create
	idx, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	h.index = idx
	return idx, nil
}

// IsOpen reports whether the index has been opened.
func (h *Handle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index != nil
}

// Insert appends entries, creating the index on the first call.
func (h *Handle) Insert(ctx context.Context, entries []domain.IndexEntry) error {
	idx, err := h.Open(ctx, true)
	if err != nil {
		return err
	}
	return idx.Insert(ctx, entries)
}

// Query searches an existing index.
func (h *Handle) Query(ctx context.Context, embedding []float32, k int) (domain.RetrievalResult, error) {
	idx, err := h.Open(ctx, false)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	return idx.Query(ctx, embedding, k)
}

// Count returns the number of entries of an existing index.
func (h *Handle) Count(ctx context.Context) (int, error) {
	idx, err := h.Open(ctx, false)
	if err != nil {
		return 0, err
	}
	return idx.Count(ctx)
}

// CountSource returns the number of entries of an existing index that came
// from source.
func (h *Handle) CountSource(ctx context.Context, source string) (int, error) {
	idx, err := h.Open(ctx, false)
	if err != nil {
		return 0, err
	}
	return idx.CountSource(ctx, source)
}

// Clear empties the index. Clearing a missing index is a no-op. An index
// whose dimensions disagree with the configured ones can still be cleared,
// which is how a rebuild recovers from a changed vector size.
func (h *Handle) Clear(ctx context.Context) error {
	idx, err := h.Open(ctx, false)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil
	}
	if errors.Is(err, domain.ErrDimensionMismatch) {
		idx, err = h.openUnsized(ctx)
	}
	if err != nil {
		return err
	}
	return idx.Clear(ctx)
}

// openUnsized opens the index without checking the configured dimensions.
func (h *Handle) openUnsized(ctx context.Context) (*Index, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, domain.ErrIndexClosed
	}
	if h.index != nil {
		return h.index, nil
	}

	cfg := h.cfg
	cfg.Dimensions = 0
	idx, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	h.index = idx
	return idx, nil
}

// Info describes an existing index.
func (h *Handle) Info(ctx context.Context) (domain.IndexInfo, error) {
	idx, err := h.Open(ctx, false)
	if err != nil {
		return domain.IndexInfo{}, err
	}
	return idx.Info(ctx)
}

// Close closes the index if it was opened. The handle cannot be reused.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.index == nil {
		return nil
	}
	return h.index.Close()
}
