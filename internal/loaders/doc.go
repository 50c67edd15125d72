// Package loaders turns files into pages of text.
//
// Each sub-package handles one family of formats:
//
//   - pdf: PDF files via the pdftotext utility (poppler)
//   - plaintext: .txt and .md files read as UTF-8
//
// Registry picks a loader by file extension.
package loaders
