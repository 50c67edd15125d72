package domain

// Page is one page of loaded text.
type Page struct {
	// Number is the 1-based page number in the source document.
	Number int

	// Text is the extracted text of the page.
	Text string
}

// Document is the loader's output: the source path and its pages.
// It is immutable once loaded and discarded after chunking.
type Document struct {
	// Path is the file the document was loaded from.
	Path string

	// Pages holds the document text in page order.
	Pages []Page
}

// CharCount returns the total number of characters across all pages.
func (d *Document) CharCount() int {
	total := 0
	for _, p := range d.Pages {
		total += len([]rune(p.Text))
	}
	return total
}

// Chunk is a bounded segment of a page, the unit stored in the vector index.
type Chunk struct {
	// ID is a stable identifier derived from the chunk's source and position.
	ID string

	// Source is the path of the originating document.
	Source string

	// Text is the chunk content. Its length never exceeds the chunk size.
	Text string

	// Page is the originating page number.
	Page int

	// Offset is the character offset of the chunk within its page.
	Offset int
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return len([]rune(c.Text))
}

// Excerpt returns at most n characters of the chunk text.
func (c Chunk) Excerpt(n int) string {
	runes := []rune(c.Text)
	if n < 0 || len(runes) <= n {
		return c.Text
	}
	return string(runes[:n])
}

// IndexEntry binds a chunk to its embedding.
type IndexEntry struct {
	Chunk     Chunk
	Embedding []float32
}
