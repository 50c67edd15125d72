package driven

import "github.com/custodia-labs/lexrag/internal/core/domain"

// Chunker splits a document into overlapping chunks.
// Implementations must be deterministic.
type Chunker interface {
	// Split returns the chunks of every page, in page order.
	Split(doc *domain.Document) []domain.Chunk

	// ChunkSize returns the maximum chunk length in characters.
	ChunkSize() int

	// Overlap returns the number of characters shared by consecutive chunks.
	Overlap() int
}
