package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrConfiguration", ErrConfiguration},
		{"ErrTransport", ErrTransport},
		{"ErrNotFound", ErrNotFound},
		{"ErrStorage", ErrStorage},
		{"ErrLoadFailure", ErrLoadFailure},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrModelMismatch", ErrModelMismatch},
		{"ErrIndexNotFound", ErrIndexNotFound},
		{"ErrIndexClosed", ErrIndexClosed},
		{"ErrUnknownMode", ErrUnknownMode},
		{"ErrDocumentNotFound", ErrDocumentNotFound},
		{"ErrUnsupportedDocument", ErrUnsupportedDocument},
		{"ErrModelNotFound", ErrModelNotFound},
		{"ErrTurnInProgress", ErrTurnInProgress},
		{"ErrIngestInProgress", ErrIngestInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Kinds tests that specific errors match their kind
func TestErrors_Kinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrDimensionMismatch, ErrConfiguration},
		{ErrModelMismatch, ErrConfiguration},
		{ErrIndexNotFound, ErrConfiguration},
		{ErrUnknownMode, ErrConfiguration},
		{ErrIndexClosed, ErrStorage},
		{ErrDocumentNotFound, ErrNotFound},
		{ErrUnsupportedDocument, ErrLoadFailure},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
		})
	}

	assert.False(t, errors.Is(ErrDocumentNotFound, ErrConfiguration))
	assert.False(t, errors.Is(ErrIndexNotFound, ErrNotFound))
}

func TestDimensionMismatchError(t *testing.T) {
	err := error(&DimensionMismatchError{Expected: 768, Actual: 384})

	assert.Contains(t, err.Error(), "768")
	assert.Contains(t, err.Error(), "384")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.ErrorIs(t, err, ErrConfiguration)

	var dimErr *DimensionMismatchError
	wrapped := fmt.Errorf("insert batch: %w", err)
	assert.True(t, errors.As(wrapped, &dimErr))
	assert.Equal(t, 768, dimErr.Expected)
}

func TestModelMismatchError(t *testing.T) {
	err := error(&ModelMismatchError{Indexed: "nomic-embed-text", Configured: "all-minilm"})

	assert.Contains(t, err.Error(), `"nomic-embed-text"`)
	assert.Contains(t, err.Error(), `"all-minilm"`)
	assert.ErrorIs(t, err, ErrModelMismatch)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrDimensionMismatch)
}

func TestTransportError(t *testing.T) {
	t.Run("connection failure", func(t *testing.T) {
		cause := errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")
		err := error(&TransportError{
			Service: "ollama",
			Op:      "chat",
			Hint:    "Make sure 'ollama serve' is running",
			Err:     cause,
		})

		assert.Equal(t,
			"ollama chat: dial tcp 127.0.0.1:11434: connect: connection refused. Make sure 'ollama serve' is running",
			err.Error())
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrConfiguration)
	})

	t.Run("status code", func(t *testing.T) {
		err := &TransportError{Service: "ollama", Op: "embed", StatusCode: 500, Err: errors.New("boom")}
		assert.Equal(t, "ollama embed (status 500): boom", err.Error())
		assert.True(t, err.Retryable())
	})

	t.Run("model not found is not retryable", func(t *testing.T) {
		err := &TransportError{
			Service:    "ollama",
			Op:         "embed",
			StatusCode: 404,
			Err:        fmt.Errorf("%w: nomic-embed-text", ErrModelNotFound),
		}
		assert.ErrorIs(t, err, ErrModelNotFound)
		assert.ErrorIs(t, err, ErrTransport)
		assert.False(t, err.Retryable())
	})

	t.Run("client errors are not retryable", func(t *testing.T) {
		err := &TransportError{Service: "openai", Op: "chat", StatusCode: 401}
		assert.False(t, err.Retryable())
	})
}

func TestBatchError(t *testing.T) {
	cause := &TransportError{Service: "ollama", Op: "embed", Err: errors.New("timeout")}
	err := error(&BatchError{Batch: 7, TotalBatches: 40, ChunksIndexed: 30, Err: cause})

	assert.Contains(t, err.Error(), "failed at batch 7/40 (30 chunks indexed)")
	assert.ErrorIs(t, err, ErrTransport)

	var batchErr *BatchError
	assert.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 30, batchErr.ChunksIndexed)
}

func TestBatchError_Cancelled(t *testing.T) {
	err := &BatchError{Batch: 2, TotalBatches: 3, ChunksIndexed: 5, Err: context.Canceled}
	assert.ErrorIs(t, err, context.Canceled)
}
