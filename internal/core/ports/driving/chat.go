package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	// Reply is the assistant message stored in the history, primer included.
	Reply string

	// Messages is the exact chain sent to the chat model.
	Messages []domain.Message

	// Retrieved holds the chunks the system prompt was built from.
	Retrieved domain.RetrievalResult
}

// ChatService runs conversations.
type ChatService interface {
	// NewSession starts a conversation in the named mode.
	// An empty name selects the default mode.
	NewSession(mode string) (*domain.Session, error)

	// Turn processes one user message. The user message is always kept in
	// the history; on failure nothing else is added.
	Turn(ctx context.Context, session *domain.Session, input string) (*TurnResult, error)

	// Reset clears a session back to its greeting. It fails with
	// domain.ErrTurnInProgress while a turn is running.
	Reset(session *domain.Session) error

	// Modes lists the available modes.
	Modes() []domain.ModeConfig

	// Mode returns the named mode.
	Mode(name string) (domain.ModeConfig, error)
}
