package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// VectorIndex stores chunks with their embeddings and answers k-nearest
// neighbour queries by cosine similarity.
//
// Every entry has the same dimensionality, fixed by the first insert.
// Vectors of any other length are rejected with *domain.DimensionMismatchError.
type VectorIndex interface {
	// Insert appends entries. The call is atomic: either every entry is
	// durably stored or none is. Existing entries are never replaced.
	Insert(ctx context.Context, entries []domain.IndexEntry) error

	// Query returns up to k entries ordered by descending similarity.
	// Ties keep insertion order. An empty index yields an empty result.
	Query(ctx context.Context, embedding []float32, k int) (domain.RetrievalResult, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// CountSource returns the number of stored entries whose chunk came
	// from source.
	CountSource(ctx context.Context, source string) (int, error)

	// Clear removes every entry. The model and metric are kept; the
	// dimensionality is fixed again by the next insert.
	Clear(ctx context.Context) error

	// Info describes the index.
	Info(ctx context.Context) (domain.IndexInfo, error)

	// Close releases resources. Further calls fail with domain.ErrIndexClosed.
	Close() error
}
