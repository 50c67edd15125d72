package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/similarity"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// indexFile is the database file name inside a model directory.
const indexFile = "index.db"

// Keys of the index_meta table.
const (
	metaModel      = "embedding_model"
	metaDimensions = "dimensions"
	metaMetric     = "metric"
)

// Config locates and describes an index.
type Config struct {
	// Root is the directory holding one subdirectory per embedding model.
	// If empty, defaults to ~/.lexrag/index.
	Root string

	// Model is the embedding model name. Required.
	Model string

	// Dimensions is the expected vector length, checked against an index
	// that already holds entries. Zero skips the check. It is never
	// recorded: only a committed insert fixes the index dimensions.
	Dimensions int

	// CreateIfMissing creates the index when it does not exist yet.
	// Otherwise a missing index is domain.ErrIndexNotFound.
	CreateIfMissing bool
}

// Index is a SQLite-backed vector index for a single embedding model.
type Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	model  string
	dims   int
	closed bool
}

// DefaultRoot returns ~/.lexrag/index.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".lexrag", "index"), nil
}

// ModelSlug turns a model name into a directory name.
// "nomic-embed-text:latest" becomes "nomic-embed-text_latest".
func ModelSlug(model string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(model) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// IndexPath returns the database path of the index for model under root.
func IndexPath(root, model string) string {
	return filepath.Join(root, ModelSlug(model), indexFile)
}

// Open opens the index for cfg.Model, creating it when allowed.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is required to open an index", domain.ErrConfiguration)
	}
	if cfg.Root == "" {
		root, err := DefaultRoot()
		if err != nil {
			return nil, err
		}
		cfg.Root = root
	}

	dbPath := IndexPath(cfg.Root, cfg.Model)
	if !cfg.CreateIfMissing {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s; run 'lexrag ingest' first", domain.ErrIndexNotFound, dbPath)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: creating index directory: %w", domain.ErrStorage, err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStorage, err)
	}

	idx := &Index{
		db:    db,
		path:  dbPath,
		model: cfg.Model,
	}

	if err := idx.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStorage, err)
	}

	if err := idx.checkMeta(ctx, cfg); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// migrate runs all pending migrations, recording each applied version.
func (i *Index) migrate(ctx context.Context, fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := i.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := i.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := i.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// checkMeta records the model and metric of a new index, or verifies them
// against an existing one. Recorded dimensions are only binding while the
// index holds entries; a stale value on an empty index is dropped.
func (i *Index) checkMeta(ctx context.Context, cfg Config) error {
	meta, err := i.readMeta(ctx)
	if err != nil {
		return err
	}

	if indexed, ok := meta[metaModel]; ok && indexed != cfg.Model {
		return &domain.ModelMismatchError{Indexed: indexed, Configured: cfg.Model}
	}
	if metric, ok := meta[metaMetric]; ok && metric != domain.MetricCosine {
		return fmt.Errorf("%w: index uses unsupported metric %q", domain.ErrConfiguration, metric)
	}

	stored := 0
	if v, ok := meta[metaDimensions]; ok {
		stored, err = strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: corrupt dimensions %q in index metadata", domain.ErrStorage, v)
		}
	}
	if stored > 0 {
		n, err := i.count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := deleteMeta(ctx, i.db, metaDimensions); err != nil {
				return err
			}
			stored = 0
		}
	}
	if stored > 0 && cfg.Dimensions > 0 && stored != cfg.Dimensions {
		return &domain.DimensionMismatchError{Expected: stored, Actual: cfg.Dimensions}
	}
	i.dims = stored

	pending := map[string]string{}
	if _, ok := meta[metaModel]; !ok {
		pending[metaModel] = cfg.Model
	}
	if _, ok := meta[metaMetric]; !ok {
		pending[metaMetric] = domain.MetricCosine
	}
	for key, value := range pending {
		if err := writeMeta(ctx, i.db, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := i.db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return nil, fmt.Errorf("%w: reading index metadata: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: scanning index metadata: %w", domain.ErrStorage, err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading index metadata: %w", domain.ErrStorage, err)
	}
	return meta, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeMeta(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: writing index metadata %s: %w", domain.ErrStorage, key, err)
	}
	return nil
}

func deleteMeta(ctx context.Context, db execer, key string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM index_meta WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: deleting index metadata %s: %w", domain.ErrStorage, key, err)
	}
	return nil
}

// Insert appends entries in a single transaction. The first insert into an
// empty index records the dimensions in the same transaction.
func (i *Index) Insert(ctx context.Context, entries []domain.IndexEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrIndexClosed
	}
	if len(entries) == 0 {
		return nil
	}

	dims := i.dims
	if dims == 0 {
		dims = len(entries[0].Embedding)
		if dims == 0 {
			return fmt.Errorf("%w: empty embedding for chunk %s", domain.ErrInvalidInput, entries[0].Chunk.ID)
		}
	}
	for _, e := range entries {
		if len(e.Embedding) != dims {
			return &domain.DimensionMismatchError{Expected: dims, Actual: len(e.Embedding)}
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if i.dims == 0 {
		if err := writeMeta(ctx, tx, metaDimensions, strconv.Itoa(dims)); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (chunk_id, source, page, char_offset, text, embedding, norm)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", domain.ErrStorage, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.Chunk.ID, e.Chunk.Source, e.Chunk.Page, e.Chunk.Offset, e.Chunk.Text,
			float32SliceToBytes(e.Embedding), similarity.Norm(e.Embedding))
		if err != nil {
			return fmt.Errorf("%w: inserting chunk %s: %w", domain.ErrStorage, e.Chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing entries: %w", domain.ErrStorage, err)
	}

	i.dims = dims
	return nil
}

// Query returns the k entries most similar to embedding.
func (i *Index) Query(ctx context.Context, embedding []float32, k int) (domain.RetrievalResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return domain.RetrievalResult{}, domain.ErrIndexClosed
	}
	if i.dims == 0 || k <= 0 {
		// Nothing has ever been inserted.
		return domain.RetrievalResult{}, nil
	}
	if len(embedding) != i.dims {
		return domain.RetrievalResult{}, &domain.DimensionMismatchError{Expected: i.dims, Actual: len(embedding)}
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT chunk_id, source, page, char_offset, text, embedding, norm
		FROM entries
		ORDER BY id
	`)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("%w: querying entries: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	queryNorm := similarity.Norm(embedding)
	var hits []domain.ScoredChunk
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		var norm float64
		if err := rows.Scan(&c.ID, &c.Source, &c.Page, &c.Offset, &c.Text, &blob, &norm); err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("%w: scanning entry: %w", domain.ErrStorage, err)
		}
		score := similarity.CosineWithNorms(embedding, bytesToFloat32Slice(blob), queryNorm, norm)
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("%w: iterating entries: %w", domain.ErrStorage, err)
	}

	return domain.RetrievalResult{Hits: similarity.TopK(hits, k)}, nil
}

// Count returns the number of stored entries.
func (i *Index) Count(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return 0, domain.ErrIndexClosed
	}
	return i.count(ctx)
}

func (i *Index) count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting entries: %w", domain.ErrStorage, err)
	}
	return n, nil
}

// CountSource returns the number of entries whose chunk came from source.
func (i *Index) CountSource(ctx context.Context, source string) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return 0, domain.ErrIndexClosed
	}
	var n int
	err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE source = ?", source).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: counting entries of %s: %w", domain.ErrStorage, source, err)
	}
	return n, nil
}

// Clear removes every entry and forgets the dimensions, so the next insert
// may use another vector size. The model stays recorded.
func (i *Index) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrIndexClosed
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("%w: clearing entries: %w", domain.ErrStorage, err)
	}
	if err := deleteMeta(ctx, tx, metaDimensions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing clear: %w", domain.ErrStorage, err)
	}

	i.dims = 0
	return nil
}

// Info describes the index.
func (i *Index) Info(ctx context.Context) (domain.IndexInfo, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return domain.IndexInfo{}, domain.ErrIndexClosed
	}
	n, err := i.count(ctx)
	if err != nil {
		return domain.IndexInfo{}, err
	}
	return domain.IndexInfo{
		Model:      i.model,
		Dimensions: i.dims,
		Metric:     domain.MetricCosine,
		Entries:    n,
		Path:       i.path,
	}, nil
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// Close closes the database connection. Calling Close again is a no-op.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	return i.db.Close()
}

// float32SliceToBytes converts []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
