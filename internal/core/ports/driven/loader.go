package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DocumentLoader reads a file into pages of text.
// Each loader handles specific file extensions (e.g., .pdf, .txt).
type DocumentLoader interface {
	// Name identifies the loader in logs.
	Name() string

	// Extensions returns the lower-case file extensions handled, with dot.
	Extensions() []string

	// Load reads the file. Parse failures wrap domain.ErrLoadFailure.
	Load(ctx context.Context, path string) (*domain.Document, error)
}

// LoaderRegistry selects the appropriate loader for a file.
type LoaderRegistry interface {
	// Load reads the file using the loader registered for its extension.
	// Unknown extensions fail with domain.ErrUnsupportedDocument.
	Load(ctx context.Context, path string) (*domain.Document, error)

	// Register adds a loader to the registry.
	Register(loader DocumentLoader)

	// Extensions returns every extension that can be loaded.
	Extensions() []string

	// Pattern returns a doublestar pattern matching every loadable file.
	Pattern() string
}
