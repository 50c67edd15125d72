// Package mcp provides an MCP (Model Context Protocol) server adapter for lexrag.
// It lets AI assistants retrieve passages from the local vector index.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")

// ErrNoFreePort is returned when no HTTP port in the search range is free.
var ErrNoFreePort = errors.New("mcp: no available port")
