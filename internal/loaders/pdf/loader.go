// Package pdf loads PDF documents by running pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/loaders"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// toolName is the poppler utility used for extraction.
const toolName = "pdftotext"

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = fmt.Errorf("%w: %s not found in PATH", domain.ErrLoadFailure, toolName)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// Loader extracts text per page from PDF files.
type Loader struct {
	runner CommandRunner
}

// New creates a PDF loader that shells out to pdftotext.
func New() *Loader {
	return &Loader{runner: execRunner{}}
}

// NewWithRunner creates a PDF loader with a custom command runner.
func NewWithRunner(runner CommandRunner) *Loader {
	return &Loader{runner: runner}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "pdf"
}

// Extensions returns the handled file extensions.
func (l *Loader) Extensions() []string {
	return []string{".pdf"}
}

// Load extracts the text of every page. pdftotext ends each page with a
// form feed, which is where pages are split.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Document, error) {
	out, err := l.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, fmt.Errorf("%w\n%s", err, InstallInstructions())
		}
		return nil, fmt.Errorf("%w: pdftotext failed on %s: %w", domain.ErrLoadFailure, path, err)
	}

	return &domain.Document{
		Path:  path,
		Pages: loaders.SplitPages(string(out)),
	}, nil
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions explains how to install pdftotext.
func InstallInstructions() string {
	return `PDF support requires pdftotext (part of poppler).

Install it with:
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils`
}
