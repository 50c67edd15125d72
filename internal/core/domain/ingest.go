package domain

import "time"

// DefaultBatchSize is the number of chunks embedded and inserted together.
const DefaultBatchSize = 5

// IngestionReport summarises an ingestion run.
type IngestionReport struct {
	// Source is the ingested path.
	Source string

	// ChunksCreated is the number of chunks the document was split into.
	ChunksCreated int

	// ChunksIndexed is the number of chunks durably written by this run.
	ChunksIndexed int

	// ChunksSkipped is the number of leading chunks skipped on resume.
	ChunksSkipped int

	// Batches is the number of batches the run planned.
	Batches int

	// BatchesCommitted is the number of batches that were inserted.
	BatchesCommitted int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Complete reports whether every planned batch was committed.
func (r *IngestionReport) Complete() bool {
	return r.BatchesCommitted == r.Batches
}

// Add folds another report into r, used when ingesting a directory.
func (r *IngestionReport) Add(other *IngestionReport) {
	if other == nil {
		return
	}
	r.ChunksCreated += other.ChunksCreated
	r.ChunksIndexed += other.ChunksIndexed
	r.ChunksSkipped += other.ChunksSkipped
	r.Batches += other.Batches
	r.BatchesCommitted += other.BatchesCommitted
	r.Duration += other.Duration
}

// IngestProgress is reported after each committed batch.
type IngestProgress struct {
	// Source is the document being ingested.
	Source string

	// Batch is the 1-based index of the batch just committed.
	Batch int

	// TotalBatches is the number of batches in the run.
	TotalBatches int

	// ChunksIndexed counts chunks committed so far, including skipped ones.
	ChunksIndexed int

	// TotalChunks is the number of chunks in the document.
	TotalChunks int
}

// Percent returns completion in the range [0, 100].
func (p IngestProgress) Percent() float64 {
	if p.TotalChunks == 0 {
		return 100
	}
	return float64(p.ChunksIndexed) / float64(p.TotalChunks) * 100
}
