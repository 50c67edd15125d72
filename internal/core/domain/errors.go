package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by lexrag matches exactly one of
// these with errors.Is.
var (
	// ErrConfiguration indicates a setup problem that retrying cannot fix,
	// such as an index built with another embedding model.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates an embedding or chat service could not be reached
	// or returned a failure.
	ErrTransport = errors.New("transport error")

	// ErrNotFound indicates a requested input does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage indicates the vector index could not be read or written.
	ErrStorage = errors.New("storage failure")

	// ErrLoadFailure indicates a document exists but could not be parsed.
	ErrLoadFailure = errors.New("load failure")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// Specific failures, each wrapping one of the kinds above.
var (
	// ErrDimensionMismatch indicates a vector whose length differs from the index.
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", ErrConfiguration)

	// ErrModelMismatch indicates an index built with a different embedding model.
	ErrModelMismatch = fmt.Errorf("%w: embedding model mismatch", ErrConfiguration)

	// ErrIndexNotFound indicates no persisted index exists for the configured model.
	ErrIndexNotFound = fmt.Errorf("%w: vector index not found", ErrConfiguration)

	// ErrIndexClosed indicates use of a vector index after Close.
	ErrIndexClosed = fmt.Errorf("%w: vector index closed", ErrStorage)

	// ErrUnknownMode indicates a mode name that is not registered.
	ErrUnknownMode = fmt.Errorf("%w: unknown mode", ErrConfiguration)

	// ErrDocumentNotFound indicates the document to ingest does not exist.
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)

	// ErrUnsupportedDocument indicates no loader handles the file type.
	ErrUnsupportedDocument = fmt.Errorf("%w: unsupported document type", ErrLoadFailure)

	// ErrModelNotFound indicates the model service does not have the requested model.
	ErrModelNotFound = errors.New("model not found")

	// ErrTurnInProgress indicates a session already has a turn in flight.
	ErrTurnInProgress = errors.New("turn already in progress")

	// ErrIngestInProgress indicates another ingestion is running.
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

// DimensionMismatchError reports a vector that does not fit the index.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d dimensions, got %d", e.Expected, e.Actual)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// ModelMismatchError reports an index opened with a different embedding model.
type ModelMismatchError struct {
	Indexed    string
	Configured string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("index was built with embedding model %q but %q is configured; "+
		"rebuild the index or switch the embedding model", e.Indexed, e.Configured)
}

// Unwrap returns ErrModelMismatch.
func (e *ModelMismatchError) Unwrap() error {
	return ErrModelMismatch
}

// TransportError is a failed call to an embedding or chat service.
type TransportError struct {
	// Service names the backend, e.g. "ollama".
	Service string

	// Op is the attempted operation, e.g. "chat" or "embed".
	Op string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Hint is optional guidance for the user.
	Hint string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Service, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed.
func (e *TransportError) Retryable() bool {
	if errors.Is(e.Err, ErrModelNotFound) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// BatchError reports an ingestion batch that failed. Batches before it are
// durably indexed, so the run can be resumed.
type BatchError struct {
	// Batch is the 1-based index of the failed batch.
	Batch int

	// TotalBatches is the number of batches in the run.
	TotalBatches int

	// ChunksIndexed is the number of chunks durably indexed before the failure.
	ChunksIndexed int

	// Err is the cause.
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("failed at batch %d/%d (%d chunks indexed): %v",
		e.Batch, e.TotalBatches, e.ChunksIndexed, e.Err)
}

// Unwrap returns the cause.
func (e *BatchError) Unwrap() error {
	return e.Err
}
