// Package chunker splits page text into overlapping chunks, cutting at the
// most natural boundary available: paragraph, line, sentence, word, and
// only then an arbitrary character.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order when looking for a break point.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// chunkNamespace scopes the name-based chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lexrag:chunk"))

// Chunker splits pages into chunks of at most chunkSize characters.
// Consecutive chunks of a page share exactly overlap characters.
type Chunker struct {
	chunkSize  int
	overlap    int
	separators [][]rune
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSeparators replaces the break-point separators, highest priority first.
func WithSeparators(seps ...string) Option {
	return func(c *Chunker) {
		c.separators = toRunes(seps)
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: toRunes(DefaultSeparators),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Validate reports whether a size and overlap pair can be used.
func Validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrConfiguration, chunkSize, overlap)
	}
	return nil
}

// ChunkSize returns the maximum chunk length in characters.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split returns the chunks of every page in page order.
func (c *Chunker) Split(doc *domain.Document) []domain.Chunk {
	if doc == nil {
		return nil
	}

	var chunks []domain.Chunk
	for _, page := range doc.Pages {
		chunks = append(chunks, c.splitPage(doc.Path, page)...)
	}
	return chunks
}

// splitPage walks the page in windows of chunkSize characters. Each window
// ends at the best break point inside it and the next window starts overlap
// characters before that end.
func (c *Chunker) splitPage(source string, page domain.Page) []domain.Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	runes := []rune(page.Text)
	n := len(runes)

	var chunks []domain.Chunk
	start := 0
	for {
		end := n
		if n-start > c.chunkSize {
			end = c.breakPoint(runes, start, start+c.chunkSize)
		}

		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, domain.Chunk{
				ID:     chunkID(source, page.Number, start, text),
				Source: source,
				Text:   text,
				Page:   page.Number,
				Offset: start,
			})
		}

		if end >= n {
			return chunks
		}
		start = end - c.overlap
	}
}

// breakPoint returns the cut position for the window [start, limit).
// A cut falls right after the last separator occurrence, trying separators
// in priority order. Cuts that would leave a chunk no longer than the
// overlap are rejected so every window makes progress.
func (c *Chunker) breakPoint(runes []rune, start, limit int) int {
	window := runes[start:limit]
	for _, sep := range c.separators {
		idx := lastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := idx + len(sep)
		if cut > c.overlap {
			return start + cut
		}
	}
	return limit
}

// lastIndex returns the index of the last occurrence of sep in s, or -1.
func lastIndex(s, sep []rune) int {
	if len(sep) == 0 || len(sep) > len(s) {
		return -1
	}
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func toRunes(seps []string) [][]rune {
	out := make([][]rune, 0, len(seps))
	for _, s := range seps {
		if s != "" {
			out = append(out, []rune(s))
		}
	}
	return out
}

// chunkID derives a stable ID so re-chunking the same input yields the same IDs.
func chunkID(source string, page, offset int, text string) string {
	name := source + "\x00" + strconv.Itoa(page) + "\x00" + strconv.Itoa(offset) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
