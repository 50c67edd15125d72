package loaders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps file extensions to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]driven.DocumentLoader
}

// NewRegistry creates a registry holding the given loaders.
// A later loader wins when two claim the same extension.
func NewRegistry(loaders ...driven.DocumentLoader) *Registry {
	r := &Registry{loaders: make(map[string]driven.DocumentLoader)}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Register adds a loader for each of its extensions.
func (r *Registry) Register(loader driven.DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range loader.Extensions() {
		r.loaders[strings.ToLower(ext)] = loader
	}
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Lookup returns the loader for path's extension.
func (r *Registry) Lookup(path string) (driven.DocumentLoader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// Load reads path with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrLoadFailure, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrUnsupportedDocument, path)
	}

	loader, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			domain.ErrUnsupportedDocument, filepath.Ext(path), strings.Join(r.Extensions(), ", "))
	}
	return loader.Load(ctx, path)
}

// Pattern returns a doublestar glob matching every registered extension,
// e.g. "**/*.{md,pdf,txt}".
func (r *Registry) Pattern() string {
	exts := r.Extensions()
	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		names = append(names, strings.TrimPrefix(ext, "."))
	}
	switch len(names) {
	case 0:
		return "**/*"
	case 1:
		return "**/*." + names[0]
	default:
		return "**/*.{" + strings.Join(names, ",") + "}"
	}
}

// SplitPages splits extracted text into pages on form feed characters.
// A trailing form feed does not open an empty final page.
func SplitPages(text string) []domain.Page {
	parts := strings.Split(text, "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]domain.Page, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, domain.Page{Number: i + 1, Text: p})
	}
	return pages
}
