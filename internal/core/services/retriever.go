package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retriever embeds queries and searches the vector index.
// It never writes to the index.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	topK     int
}

// NewRetriever creates a retriever. topK <= 0 uses domain.DefaultTopK.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}
}

// Retrieve returns up to k chunks most similar to query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = r.topK
	}
	result := domain.RetrievalResult{Query: query}

	if strings.TrimSpace(query) == "" {
		logger.Debug("Empty query, returning no results")
		return result, nil
	}

	done := logger.Timed("Embed query")
	vec, err := r.embedder.Embed(ctx, query)
	done()
	if err != nil {
		return result, fmt.Errorf("embed query: %w", err)
	}

	done = logger.Timed("Search top %d", k)
	found, err := r.index.Query(ctx, vec, k)
	done()
	if err != nil {
		return result, fmt.Errorf("query index: %w", err)
	}
	result.Hits = found.Hits

	if top, ok := result.Top(); ok {
		logger.Debug("Retrieved %d chunks for %q, top page %d (score %.4f)",
			result.Len(), query, top.Chunk.Page, top.Score)
	} else {
		logger.Debug("No chunks retrieved for %q", query)
	}
	return result, nil
}
