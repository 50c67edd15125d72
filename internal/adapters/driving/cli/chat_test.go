package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestChat_DefaultModeGreetsAndReplies(t *testing.T) {
	env := setupTestServices(t)

	out, err := runCLI(t, "Teach me dal makhani\nexit\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Chatting in chef mode.")
	assert.Contains(t, out, "Chef Vikram> I am Chef Vikram.")
	assert.Contains(t, out, "Chef Vikram> Namaste! Let us cook.")
	assert.NotContains(t, out, "(context:")

	// The wait is announced before the reply.
	thinking := strings.Index(out, "Chef Vikram is thinking...")
	require.GreaterOrEqual(t, thinking, 0)
	assert.Less(t, thinking, strings.Index(out, "Chef Vikram> Namaste!"))

	chain := env.llm.lastChain()
	require.NotEmpty(t, chain)
	assert.Equal(t, domain.RoleSystem, chain[0].Role)
	assert.Equal(t, "Teach me dal makhani", chain[len(chain)-1].Content)
}

func TestChat_RetrievalModeEmptyIndex(t *testing.T) {
	env := setupTestServices(t)
	env.llm.reply = "The indexed documents do not cover that."

	out, err := runCLI(t, "What does Section 25F say?\nexit\n", "chat", "--mode", "counsel")

	require.NoError(t, err)
	assert.Contains(t, out, "Legal counsel> The indexed documents do not cover that.")
	chain := env.llm.lastChain()
	require.NotEmpty(t, chain)
	assert.Contains(t, chain[0].Content, domain.NoContextMarker)
}

func TestChat_RetrievalModeCitesPages(t *testing.T) {
	env := setupTestServices(t)
	ingestAct(t, env)
	env.llm.reply = "One month's notice and compensation."

	out, err := runCLI(t, retrenchmentQuestion+"\nexit\n", "chat", "-m", "counsel")

	require.NoError(t, err)
	assert.Contains(t, out, "(context: page 3")
	assert.Contains(t, env.llm.lastChain()[0].Content, "Section 25F")
}

func TestChat_PrimerEndsChain(t *testing.T) {
	env := setupTestServices(t)
	ingestAct(t, env)

	_, err := runCLI(t, "Draft a retrenchment notice\nexit\n", "chat", "--mode", "clerk")

	require.NoError(t, err)
	chain := env.llm.lastChain()
	require.NotEmpty(t, chain)
	assert.Equal(t, domain.RoleAssistant, chain[len(chain)-1].Role)
}

func TestChat_Reset(t *testing.T) {
	setupTestServices(t)

	out, err := runCLI(t, "hello\n/reset\nexit\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Conversation reset.")
	// The greeting is shown at start and again after the reset.
	assert.Equal(t, 2, strings.Count(out, "Chef Vikram> I am Chef Vikram."))
}

func TestChat_UnknownMode(t *testing.T) {
	setupTestServices(t)

	_, err := runCLI(t, "", "chat", "--mode", "astrologer")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
}

func TestChat_GenerationErrorContinues(t *testing.T) {
	env := setupTestServices(t)
	env.llm.err = errors.New("ollama chat: connection refused")

	out, err := runCLI(t, "first\nsecond\nexit\n", "chat")

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Error:"))
	assert.Equal(t, 2, strings.Count(out, "Chef Vikram is thinking..."))
	assert.Len(t, env.llm.chains, 2)
}

func TestChat_EndOfInput(t *testing.T) {
	setupTestServices(t)

	out, err := runCLI(t, "", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "You> ")
}
