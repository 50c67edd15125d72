package domain

// DefaultTopK is the number of chunks retrieved per query when unspecified.
const DefaultTopK = 3

// ScoredChunk is a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the cosine similarity in [-1, 1]; higher is closer.
	Score float64
}

// RetrievalResult holds up to k chunks ordered by descending score.
// An empty result is a normal outcome meaning nothing matched.
type RetrievalResult struct {
	// Query is the text that was embedded, when known.
	Query string

	// Hits are ordered best first.
	Hits []ScoredChunk
}

// IsEmpty reports whether no chunks were retrieved.
func (r RetrievalResult) IsEmpty() bool {
	return len(r.Hits) == 0
}

// Len returns the number of hits.
func (r RetrievalResult) Len() int {
	return len(r.Hits)
}

// Top returns the best hit and true, or false when the result is empty.
func (r RetrievalResult) Top() (ScoredChunk, bool) {
	if len(r.Hits) == 0 {
		return ScoredChunk{}, false
	}
	return r.Hits[0], true
}

// IndexInfo describes a persisted vector index.
type IndexInfo struct {
	// Model is the embedding model the index was built with.
	Model string

	// Dimensions is the fixed vector length of every entry.
	Dimensions int

	// Metric names the similarity function, fixed at creation.
	Metric string

	// Entries is the number of stored entries.
	Entries int

	// Path is where the index lives on disk, empty for in-memory indexes.
	Path string
}

// MetricCosine is the only similarity metric indexes are created with.
const MetricCosine = "cosine"
