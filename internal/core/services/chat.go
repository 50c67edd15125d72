package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService runs conversations: it retrieves context, renders the mode's
// system prompt and asks the chat model for a reply.
type ChatService struct {
	modes     *ModeRegistry
	retriever driving.Retriever
	llm       driven.LLMService
	opts      driven.ChatOptions
}

// NewChatService creates a chat service. retriever may be nil when no
// registered mode requires retrieval.
func NewChatService(
	modes *ModeRegistry,
	retriever driving.Retriever,
	llm driven.LLMService,
	opts driven.ChatOptions,
) *ChatService {
	return &ChatService{
		modes:     modes,
		retriever: retriever,
		llm:       llm,
		opts:      opts,
	}
}

// NewSession starts a conversation in the named mode.
func (s *ChatService) NewSession(mode string) (*domain.Session, error) {
	cfg, err := s.modes.Mode(mode)
	if err != nil {
		return nil, err
	}
	session := domain.NewSession(uuid.NewString(), cfg.Name, cfg.Greeting)
	logger.Debug("Session %s started in mode %s", session.ID, cfg.Name)
	return session, nil
}

// Turn processes one user message.
func (s *ChatService) Turn(ctx context.Context, session *domain.Session, input string) (*driving.TurnResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if !session.BeginTurn() {
		return nil, domain.ErrTurnInProgress
	}
	defer session.EndTurn()

	logger.Section("turn")

	// 1. The user message is kept whatever happens next
	session.SetState(domain.TurnAwaitingUserInput)
	session.Append(domain.UserMessage(input))

	// Re-resolve the mode so prompt edits apply to this turn. Nothing has
	// been retrieved or generated yet, so a failure here is not an Error.
	mode, err := s.modes.Mode(session.Mode)
	if err != nil {
		logger.Warn("Turn rejected: %v", err)
		return nil, fmt.Errorf("resolve mode: %w", err)
	}

	// 2. Retrieve
	var retrieved domain.RetrievalResult
	if mode.RequiresRetrieval {
		session.SetState(domain.TurnRetrieving)
		if s.retriever == nil {
			return nil, s.fail(session, "retrieve",
				fmt.Errorf("%w: mode %s requires retrieval", domain.ErrConfiguration, mode.Name))
		}
		retrieved, err = s.retriever.Retrieve(ctx, input, 0)
		if err != nil {
			return nil, s.fail(session, "retrieve", err)
		}
		logger.Debug("Retrieved %d chunks", retrieved.Len())
	}

	// 3. Render and assemble
	history := session.History()
	system := mode.SystemPrompt(domain.PromptInput{Retrieved: retrieved, History: history})
	messages := Assemble(system, history, mode.Primer)

	// 4. Generate
	session.SetState(domain.TurnGeneratingReply)
	done := logger.Timed("Generate reply from %s (%d messages)", s.llm.ModelName(), len(messages))
	reply, err := s.llm.Chat(ctx, messages, s.opts)
	done()
	if err != nil {
		return nil, s.fail(session, "generate reply", err)
	}

	full := mode.Primer + reply
	session.Append(domain.AssistantMessage(full))
	session.SetState(domain.TurnIdle)

	return &driving.TurnResult{
		Reply:     full,
		Messages:  messages,
		Retrieved: retrieved,
	}, nil
}

// fail records a turn that failed while retrieving or generating. The
// history keeps the user message only.
func (s *ChatService) fail(session *domain.Session, stage string, err error) error {
	session.SetState(domain.TurnError)
	logger.Warn("Turn failed during %s: %v", stage, err)
	session.SetState(domain.TurnAwaitingUserInput)
	return fmt.Errorf("%s: %w", stage, err)
}

// Reset clears a session back to its greeting.
func (s *ChatService) Reset(session *domain.Session) error {
	if !session.BeginTurn() {
		return domain.ErrTurnInProgress
	}
	defer session.EndTurn()
	session.Reset()
	return nil
}

// Modes lists the available modes.
func (s *ChatService) Modes() []domain.ModeConfig {
	return s.modes.Modes()
}

// Mode returns the named mode.
func (s *ChatService) Mode(name string) (domain.ModeConfig, error) {
	return s.modes.Mode(name)
}

// Assemble builds the chain sent to the chat model: the system prompt,
// then the history, then the primer as a trailing assistant message when
// one is set. It does not modify history.
func Assemble(system string, history []domain.Message, primer string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.SystemMessage(system))
	messages = append(messages, history...)
	if primer != "" {
		messages = append(messages, domain.AssistantMessage(primer))
	}
	return messages
}
