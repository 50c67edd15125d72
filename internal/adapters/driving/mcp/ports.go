package mcp

import (
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Retriever answers the retrieve tool. Required.
	Retriever driving.Retriever

	// Chat backs the ask tool and the modes resources. Optional.
	Chat driving.ChatService

	// Index backs the index resource. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
