package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalResult_Empty(t *testing.T) {
	r := RetrievalResult{Query: "Section 25F"}

	assert.True(t, r.IsEmpty())
	assert.Equal(t, 0, r.Len())
	_, ok := r.Top()
	assert.False(t, ok)
}

func TestRetrievalResult_Top(t *testing.T) {
	r := RetrievalResult{Hits: []ScoredChunk{
		{Chunk: Chunk{ID: "a", Page: 12}, Score: 0.9},
		{Chunk: Chunk{ID: "b"}, Score: 0.5},
	}}

	top, ok := r.Top()
	assert.True(t, ok)
	assert.Equal(t, "a", top.Chunk.ID)
	assert.Equal(t, 12, top.Chunk.Page)
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.IsEmpty())
}

func TestIngestionReport_Add(t *testing.T) {
	total := &IngestionReport{Source: "dir"}
	total.Add(&IngestionReport{ChunksCreated: 10, ChunksIndexed: 10, Batches: 2, BatchesCommitted: 2, Duration: time.Second})
	total.Add(&IngestionReport{ChunksCreated: 3, ChunksIndexed: 0, ChunksSkipped: 3, Batches: 1, BatchesCommitted: 1})
	total.Add(nil)

	assert.Equal(t, 13, total.ChunksCreated)
	assert.Equal(t, 10, total.ChunksIndexed)
	assert.Equal(t, 3, total.ChunksSkipped)
	assert.Equal(t, 3, total.Batches)
	assert.True(t, total.Complete())
	assert.Equal(t, time.Second, total.Duration)
}

func TestIngestProgress_Percent(t *testing.T) {
	assert.InDelta(t, 50.0, IngestProgress{ChunksIndexed: 5, TotalChunks: 10}.Percent(), 0.001)
	assert.InDelta(t, 100.0, IngestProgress{}.Percent(), 0.001)
}
