// Package similarity holds the vector math shared by the vector index adapters.
// The metric is cosine similarity and nothing else.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	return CosineWithNorms(a, b, Norm(a), Norm(b))
}

// CosineWithNorms is Cosine with precomputed norms.
func CosineWithNorms(a, b []float32, normA, normB float64) float64 {
	if len(a) != len(b) || len(a) == 0 || normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// TopK orders hits by descending score and keeps the first k. Hits with
// equal scores keep their input order, so callers that pass candidates in
// insertion order get deterministic results.
func TopK(hits []domain.ScoredChunk, k int) []domain.ScoredChunk {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
