package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

type missingIndex struct {
	*recordingIndex
}

func (m missingIndex) Info(context.Context) (domain.IndexInfo, error) {
	return domain.IndexInfo{}, fmt.Errorf("open: %w", domain.ErrIndexNotFound)
}

func TestIndexService_Info(t *testing.T) {
	idx := newRecordingIndex()
	seedIndex(t, idx, seedTexts...)
	svc := NewIndexService(idx)

	info, err := svc.Info(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "mock-embed", info.Model)
	assert.Equal(t, testDims, info.Dimensions)
	assert.Equal(t, len(seedTexts), info.Entries)
}

func TestIndexService_Info_Missing(t *testing.T) {
	svc := NewIndexService(missingIndex{newRecordingIndex()})

	_, err := svc.Info(context.Background())

	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestIndexService_Clear(t *testing.T) {
	idx := newRecordingIndex()
	seedIndex(t, idx, seedTexts...)
	svc := NewIndexService(idx)

	require.NoError(t, svc.Clear(context.Background()))

	info, err := svc.Info(context.Background())
	require.NoError(t, err)
	assert.Zero(t, info.Entries)
	assert.Equal(t, "mock-embed", info.Model, "the model survives a clear")
	assert.Zero(t, info.Dimensions, "the next insert fixes the size again")
}
