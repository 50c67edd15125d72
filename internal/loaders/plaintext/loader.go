// Package plaintext loads UTF-8 text and markdown files.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/loaders"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader reads text files. Form feeds split pages, so text exported from
// paginated sources keeps its page numbers.
type Loader struct{}

// New creates a plain text loader.
func New() *Loader {
	return &Loader{}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "plaintext"
}

// Extensions returns the handled file extensions.
func (l *Loader) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// Load reads the file as UTF-8 text.
func (l *Loader) Load(_ context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrLoadFailure, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrLoadFailure, path)
	}

	return &domain.Document{
		Path:  path,
		Pages: loaders.SplitPages(string(data)),
	}, nil
}
