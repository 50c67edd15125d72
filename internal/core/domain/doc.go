// Package domain defines the core entities for lexrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Loaded source text split into pages
//   - Chunk: A bounded, overlapping segment of a page, the unit of indexing
//   - IndexEntry: A chunk paired with its embedding
//   - RetrievalResult: Rank-ordered chunks returned for a query
//   - Session: One conversation's history and turn state
//   - ModeConfig: The persona, template and primer governing a session
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
