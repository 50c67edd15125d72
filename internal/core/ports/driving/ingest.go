package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// IngestOptions configures an ingestion run.
type IngestOptions struct {
	// BatchSize is the number of chunks embedded and inserted together.
	// Zero uses the configured default.
	BatchSize int

	// Resume skips as many leading chunks as the index already holds.
	// It assumes the earlier run ingested the same document in the same order.
	Resume bool

	// Rebuild clears the index before ingesting.
	Rebuild bool

	// Pattern selects files when the path is a directory (doublestar syntax).
	// Empty means every loadable file.
	Pattern string

	// Progress is called after each committed batch. May be nil.
	Progress func(domain.IngestProgress)
}

// IngestService turns documents into index entries.
type IngestService interface {
	// Ingest loads, chunks, embeds and indexes the file or directory at path.
	// On a batch failure the partial report is returned together with a
	// *domain.BatchError.
	Ingest(ctx context.Context, path string, opts IngestOptions) (*domain.IngestionReport, error)
}
