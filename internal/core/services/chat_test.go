package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

type chatFixture struct {
	svc       *ChatService
	llm       *mockLLM
	retriever *mockRetriever
	prompts   *mapPromptStore
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		llm:       &mockLLM{reply: "reply"},
		retriever: &mockRetriever{},
		prompts: &mapPromptStore{prompts: map[string]string{
			"mode_chef":          "You are a chef.",
			"mode_chef_greeting": "Namaste.",
			"mode_counsel":       "Cite pages.\n{{context}}",
			"mode_clerk":         "Draft it.\n{{context}}",
			"mode_clerk_primer":  "Certainly. ",
		}},
	}
	modes := NewModeRegistry(f.prompts, "chef", DefaultModes()...)
	f.svc = NewChatService(modes, f.retriever, f.llm, driven.ChatOptions{Temperature: -1})
	return f
}

func TestChatService_NewSession(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.NewSession("")

	require.NoError(t, err)
	_, err = uuid.Parse(session.ID)
	assert.NoError(t, err)
	assert.Equal(t, "chef", session.Mode)
	assert.Equal(t, []domain.Message{domain.AssistantMessage("Namaste.")}, session.History())
	assert.Equal(t, domain.TurnIdle, session.State())
}

func TestChatService_NewSession_UnknownMode(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.NewSession("pirate")

	assert.ErrorIs(t, err, domain.ErrUnknownMode)
}

func TestChatService_Turn_NoRetrieval(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("chef")
	require.NoError(t, err)

	res, err := f.svc.Turn(context.Background(), session, "Teach me dal")

	require.NoError(t, err)
	assert.Equal(t, "reply", res.Reply)
	assert.Zero(t, f.retriever.calls)
	assert.Equal(t, []domain.Message{
		domain.SystemMessage("You are a chef."),
		domain.AssistantMessage("Namaste."),
		domain.UserMessage("Teach me dal"),
	}, res.Messages)
	assert.Equal(t, res.Messages, f.llm.lastChain())
	assert.Equal(t, []domain.Message{
		domain.AssistantMessage("Namaste."),
		domain.UserMessage("Teach me dal"),
		domain.AssistantMessage("reply"),
	}, session.History())
	assert.Equal(t, domain.TurnIdle, session.State())
}

func TestChatService_Turn_WithRetrieval(t *testing.T) {
	f := newChatFixture(t)
	f.retriever.result = hits(4)
	session, err := f.svc.NewSession("counsel")
	require.NoError(t, err)

	res, err := f.svc.Turn(context.Background(), session, "What is retrenchment?")

	require.NoError(t, err)
	assert.Equal(t, 1, f.retriever.calls)
	assert.Equal(t, "What is retrenchment?", res.Retrieved.Query)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, domain.RoleSystem, res.Messages[0].Role)
	assert.Equal(t, "Cite pages.\n[page 4]\ntext of page 4", res.Messages[0].Content)
	assert.Equal(t, domain.UserMessage("What is retrenchment?"), res.Messages[1])
}

func TestChatService_Turn_ZeroHitsRendersMarker(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("counsel")
	require.NoError(t, err)

	res, err := f.svc.Turn(context.Background(), session, "Who won the cricket?")

	require.NoError(t, err)
	assert.True(t, res.Retrieved.IsEmpty())
	assert.Contains(t, res.Messages[0].Content, domain.NoContextMarker)
}

func TestChatService_Turn_Primer(t *testing.T) {
	f := newChatFixture(t)
	f.llm.reply = "NOTICE OF RETRENCHMENT"
	session, err := f.svc.NewSession("clerk")
	require.NoError(t, err)

	res, err := f.svc.Turn(context.Background(), session, "Draft a notice")

	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, domain.AssistantMessage("Certainly. "), res.Messages[2])
	assert.Equal(t, "Certainly. NOTICE OF RETRENCHMENT", res.Reply)
	history := session.History()
	assert.Equal(t, domain.AssistantMessage("Certainly. NOTICE OF RETRENCHMENT"), history[len(history)-1])
}

func TestChatService_Turn_StatesDuringTurn(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("counsel")
	require.NoError(t, err)

	var seen []domain.TurnState
	f.retriever.onCall = func() { seen = append(seen, session.State()) }
	f.llm.onChat = func() { seen = append(seen, session.State()) }

	_, err = f.svc.Turn(context.Background(), session, "q")

	require.NoError(t, err)
	assert.Equal(t, []domain.TurnState{domain.TurnRetrieving, domain.TurnGeneratingReply}, seen)
	assert.Equal(t, domain.TurnIdle, session.State())
}

func TestChatService_Turn_GenerationFailureKeepsUserMessage(t *testing.T) {
	f := newChatFixture(t)
	f.llm.err = &domain.TransportError{Service: "ollama", Op: "chat", Err: errors.New("connection refused"),
		Hint: "Make sure 'ollama serve' is running"}
	session, err := f.svc.NewSession("chef")
	require.NoError(t, err)

	res, err := f.svc.Turn(context.Background(), session, "Test me")

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "generate reply")
	assert.Contains(t, err.Error(), "ollama serve")
	assert.Equal(t, []domain.Message{
		domain.AssistantMessage("Namaste."),
		domain.UserMessage("Test me"),
	}, session.History())
	assert.Equal(t, domain.TurnAwaitingUserInput, session.State())

	// The session stays usable.
	f.llm.err = nil
	_, err = f.svc.Turn(context.Background(), session, "Test me again")
	require.NoError(t, err)
	assert.Equal(t, 4, session.Len())
	assert.Equal(t, domain.TurnIdle, session.State())
}

func TestChatService_Turn_RetrievalFailure(t *testing.T) {
	f := newChatFixture(t)
	f.retriever.err = domain.ErrIndexNotFound
	session, err := f.svc.NewSession("counsel")
	require.NoError(t, err)

	_, err = f.svc.Turn(context.Background(), session, "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "retrieve")
	assert.Zero(t, f.llm.callCount())
	assert.Equal(t, []domain.Message{domain.UserMessage("q")}, session.History())
	assert.Equal(t, domain.TurnAwaitingUserInput, session.State())
}

func TestChatService_Turn_UnresolvableModeWaitsForInput(t *testing.T) {
	f := newChatFixture(t)
	session := domain.NewSession("s-1", "pirate", "")
	require.Equal(t, domain.TurnIdle, session.State())

	_, err := f.svc.Turn(context.Background(), session, "Ahoy")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
	assert.Contains(t, err.Error(), "resolve mode")
	assert.Zero(t, f.retriever.calls)
	assert.Zero(t, f.llm.callCount())
	assert.Equal(t, []domain.Message{domain.UserMessage("Ahoy")}, session.History())
	assert.Equal(t, domain.TurnAwaitingUserInput, session.State())
}

func TestChatService_Turn_NoRetrieverConfigured(t *testing.T) {
	f := newChatFixture(t)
	f.svc.retriever = nil
	session, err := f.svc.NewSession("counsel")
	require.NoError(t, err)

	_, err = f.svc.Turn(context.Background(), session, "q")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestChatService_Turn_InProgress(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("chef")
	require.NoError(t, err)
	require.True(t, session.BeginTurn())
	defer session.EndTurn()

	_, err = f.svc.Turn(context.Background(), session, "hello")

	assert.ErrorIs(t, err, domain.ErrTurnInProgress)
	assert.Equal(t, 1, session.Len(), "rejected turns leave no trace")
	assert.ErrorIs(t, f.svc.Reset(session), domain.ErrTurnInProgress)
}

func TestChatService_Turn_EmptyInput(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("chef")
	require.NoError(t, err)

	_, err = f.svc.Turn(context.Background(), session, "  ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, session.Len())
}

func TestChatService_Turn_PromptEditAppliesNextTurn(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("chef")
	require.NoError(t, err)

	_, err = f.svc.Turn(context.Background(), session, "one")
	require.NoError(t, err)
	f.prompts.set("mode_chef", "You are a grumpy chef.")
	res, err := f.svc.Turn(context.Background(), session, "two")
	require.NoError(t, err)

	assert.Equal(t, "You are a grumpy chef.", res.Messages[0].Content)
}

func TestChatService_Reset(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.svc.NewSession("chef")
	require.NoError(t, err)
	_, err = f.svc.Turn(context.Background(), session, "hello")
	require.NoError(t, err)

	require.NoError(t, f.svc.Reset(session))

	assert.Equal(t, []domain.Message{domain.AssistantMessage("Namaste.")}, session.History())
}

func TestChatService_Modes(t *testing.T) {
	f := newChatFixture(t)

	modes := f.svc.Modes()

	require.Len(t, modes, 3)
	assert.Equal(t, "chef", modes[0].Name)
	_, err := f.svc.Mode("clerk")
	assert.NoError(t, err)
}

func TestAssemble(t *testing.T) {
	history := []domain.Message{domain.UserMessage("a"), domain.AssistantMessage("b"), domain.UserMessage("c")}
	snapshot := append([]domain.Message(nil), history...)

	got := Assemble("sys", history, "")

	assert.Equal(t, append([]domain.Message{domain.SystemMessage("sys")}, history...), got)
	assert.Equal(t, snapshot, history)

	got = Assemble("sys", history, "Primer:")
	require.Len(t, got, 5)
	assert.Equal(t, domain.AssistantMessage("Primer:"), got[4])
	assert.Equal(t, snapshot, history)
}

func TestAssemble_EmptyHistory(t *testing.T) {
	got := Assemble("sys", nil, "")

	assert.Equal(t, []domain.Message{domain.SystemMessage("sys")}, got)
}
