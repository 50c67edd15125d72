package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestConfig holds pipeline defaults.
type IngestConfig struct {
	// BatchSize is used when IngestOptions.BatchSize is zero.
	BatchSize int

	// BatchInterval is the minimum time between two batches. Zero disables pacing.
	BatchInterval time.Duration
}

// IngestService loads, chunks, embeds and indexes documents.
// Batches are processed sequentially and only one run may be active.
type IngestService struct {
	loaders  driven.LoaderRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	cfg      IngestConfig

	running sync.Mutex
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	loaders driven.LoaderRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg IngestConfig,
) *IngestService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	if cfg.BatchInterval < 0 {
		cfg.BatchInterval = 0
	}
	return &IngestService{
		loaders:  loaders,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

// Ingest loads, chunks, embeds and indexes the file or directory at path.
//
//nolint:gocyclo // Pipeline with necessary sequential steps
func (s *IngestService) Ingest(
	ctx context.Context, path string, opts driving.IngestOptions,
) (*domain.IngestionReport, error) {
	if !s.running.TryLock() {
		return nil, domain.ErrIngestInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	logger.Section("ingest")
	logger.Debug("Path: %s, resume=%t, rebuild=%t", path, opts.Resume, opts.Rebuild)

	// 1. The source must exist before anything touches the index
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrLoadFailure, path, err)
	}

	// 2. Load and chunk
	var chunks []domain.Chunk
	if info.IsDir() {
		chunks, err = s.chunkDir(ctx, path, opts.Pattern)
	} else {
		chunks, err = s.chunkFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	report := &domain.IngestionReport{
		Source:        path,
		ChunksCreated: len(chunks),
	}
	logger.Info("Split %s into %d chunks", path, len(chunks))

	// 3. Explicit rebuild
	if opts.Rebuild {
		if err := s.index.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear index: %w", err)
		}
		logger.Debug("Index cleared for rebuild")
	}

	if len(chunks) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	// 4. Resume skips what an earlier run already committed for each file
	pending := chunks
	if opts.Resume {
		pending, err = s.resumePending(ctx, chunks)
		if err != nil {
			return nil, err
		}
		report.ChunksSkipped = len(chunks) - len(pending)
		logger.Info("Resuming after %d chunks", report.ChunksSkipped)
	}

	// 5. Embed and insert batch by batch
	err = s.runBatches(ctx, pending, report, opts)
	report.Duration = time.Since(start)
	if err != nil {
		logger.Warn("Ingest stopped: %v", err)
		return report, err
	}

	logger.Info("Indexed %d chunks in %d batches (%s)",
		report.ChunksIndexed, report.BatchesCommitted, report.Duration.Round(time.Millisecond))
	return report, nil
}

// runBatches commits pending. Progress counts report.ChunksSkipped as done.
func (s *IngestService) runBatches(
	ctx context.Context, pending []domain.Chunk, report *domain.IngestionReport, opts driving.IngestOptions,
) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	report.Batches = (len(pending) + batchSize - 1) / batchSize

	limit := rate.Inf
	if s.cfg.BatchInterval > 0 {
		limit = rate.Every(s.cfg.BatchInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	indexed := report.ChunksSkipped
	for b := 0; b < report.Batches; b++ {
		lo := b * batchSize
		hi := min(lo+batchSize, len(pending))
		batch := pending[lo:hi]

		fail := func(err error) error {
			return &domain.BatchError{
				Batch:         b + 1,
				TotalBatches:  report.Batches,
				ChunksIndexed: indexed,
				Err:           err,
			}
		}

		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return fail(err)
		}

		done := logger.Timed("Embed batch %d/%d", b+1, report.Batches)
		entries, err := s.embedBatch(ctx, batch)
		done()
		if err != nil {
			return fail(err)
		}
		if err := s.index.Insert(ctx, entries); err != nil {
			return fail(fmt.Errorf("insert: %w", err))
		}

		indexed += len(batch)
		report.ChunksIndexed += len(batch)
		report.BatchesCommitted++
		logger.Debug("Batch %d/%d committed (%d chunks)", b+1, report.Batches, len(batch))

		if opts.Progress != nil {
			opts.Progress(domain.IngestProgress{
				Source:        report.Source,
				Batch:         b + 1,
				TotalBatches:  report.Batches,
				ChunksIndexed: indexed,
				TotalChunks:   report.ChunksCreated,
			})
		}
	}
	return nil
}

// resumePending drops the leading chunks of each source that the index
// already holds. Chunks of one source are contiguous and in order, so the
// stored count for a source is the length of its committed prefix.
func (s *IngestService) resumePending(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	pending := make([]domain.Chunk, 0, len(chunks))
	for lo := 0; lo < len(chunks); {
		source := chunks[lo].Source
		hi := lo
		for hi < len(chunks) && chunks[hi].Source == source {
			hi++
		}

		stored, err := s.index.CountSource(ctx, source)
		if err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("count entries for %s: %w", source, err)
		}
		if stored > hi-lo {
			logger.Warn("Index holds %d entries for %s but it has only %d chunks", stored, source, hi-lo)
			stored = hi - lo
		}
		if stored > 0 {
			logger.Debug("Skipping %d/%d chunks of %s", stored, hi-lo, source)
		}

		pending = append(pending, chunks[lo+stored:hi]...)
		lo = hi
	}
	return pending, nil
}

func (s *IngestService) embedBatch(ctx context.Context, batch []domain.Chunk) ([]domain.IndexEntry, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embed: %w: got %d embeddings for %d chunks",
			domain.ErrTransport, len(vectors), len(batch))
	}

	entries := make([]domain.IndexEntry, len(batch))
	for i, c := range batch {
		entries[i] = domain.IndexEntry{Chunk: c, Embedding: vectors[i]}
	}
	return entries, nil
}

func (s *IngestService) chunkFile(ctx context.Context, path string) ([]domain.Chunk, error) {
	doc, err := s.loaders.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	logger.Debug("Loaded %s: %d pages, %d characters", path, len(doc.Pages), doc.CharCount())
	return s.chunker.Split(doc), nil
}

// chunkDir chunks every matching file below root in lexical order, so a
// resumed run sees the same chunk sequence.
func (s *IngestService) chunkDir(ctx context.Context, root, pattern string) ([]domain.Chunk, error) {
	if pattern == "" {
		pattern = s.loaders.Pattern()
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", domain.ErrInvalidInput, pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrLoadFailure, root, err)
	}
	sort.Strings(matches)
	logger.Debug("Pattern %s matched %d files in %s", pattern, len(matches), root)

	var chunks []domain.Chunk
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileChunks, err := s.chunkFile(ctx, filepath.Join(root, filepath.FromSlash(rel)))
		if errors.Is(err, domain.ErrUnsupportedDocument) && pattern != s.loaders.Pattern() {
			logger.Warn("Skipping %s: %v", rel, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, fileChunks...)
	}
	return chunks, nil
}
