package mcp

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result domain.RetrievalResult
	err    error
	lastK  int
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, k int) (domain.RetrievalResult, error) {
	m.lastK = k
	res := m.result
	res.Query = query
	return res, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	modes   []domain.ModeConfig
	reply   string
	hits    []domain.ScoredChunk
	turnErr error
}

func (m *mockChatService) NewSession(mode string) (*domain.Session, error) {
	if mode == "" {
		mode = m.modes[0].Name
	}
	cfg, err := m.Mode(mode)
	if err != nil {
		return nil, err
	}
	return domain.NewSession("s-1", cfg.Name, cfg.Greeting), nil
}

func (m *mockChatService) Turn(
	_ context.Context, session *domain.Session, input string,
) (*driving.TurnResult, error) {
	session.Append(domain.UserMessage(input))
	if m.turnErr != nil {
		return nil, m.turnErr
	}
	session.Append(domain.AssistantMessage(m.reply))
	return &driving.TurnResult{
		Reply:     m.reply,
		Retrieved: domain.RetrievalResult{Query: input, Hits: m.hits},
	}, nil
}

func (m *mockChatService) Reset(session *domain.Session) error {
	session.Reset()
	return nil
}

func (m *mockChatService) Modes() []domain.ModeConfig {
	return m.modes
}

func (m *mockChatService) Mode(name string) (domain.ModeConfig, error) {
	for _, cfg := range m.modes {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return domain.ModeConfig{}, fmt.Errorf("%w: %s", domain.ErrUnknownMode, name)
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	info domain.IndexInfo
	err  error
}

func (m *mockIndexService) Info(_ context.Context) (domain.IndexInfo, error) {
	return m.info, m.err
}

func (m *mockIndexService) Clear(_ context.Context) error {
	return m.err
}

func testModes() []domain.ModeConfig {
	return []domain.ModeConfig{
		{Name: "chef", Title: "Chef Vikram", Greeting: "Welcome."},
		{Name: "counsel", Title: "Counsel", Description: "Cites pages.", RequiresRetrieval: true},
		{Name: "clerk", Title: "Clerk", RequiresRetrieval: true, Primer: "Certainly."},
	}
}
