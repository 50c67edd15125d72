package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Retriever finds the chunks most similar to a query.
type Retriever interface {
	// Retrieve embeds the query and returns up to k chunks, best first.
	// k <= 0 uses the configured default. An empty result is not an error.
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}

// IndexService reports on and maintains the vector index.
type IndexService interface {
	// Info describes the index for the configured embedding model.
	Info(ctx context.Context) (domain.IndexInfo, error)

	// Clear removes every entry from the index.
	Clear(ctx context.Context) error
}
