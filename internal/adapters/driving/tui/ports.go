// Package tui provides an interactive chat screen for lexrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ports aggregates what the chat screen needs from the core.
type Ports struct {
	// Chat runs the turns.
	Chat driving.ChatService

	// Session is the conversation shown on screen.
	Session *domain.Session
}

// NewPorts creates a new Ports aggregate.
func NewPorts(chat driving.ChatService, session *domain.Session) *Ports {
	return &Ports{
		Chat:    chat,
		Session: session,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Session == nil {
		return ErrMissingSession
	}
	return nil
}
