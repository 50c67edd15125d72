package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// LLMService is a chat-completion model.
//
// Implementations:
//   - Ollama (local models, the default)
//   - OpenAI and compatible inference servers (LM Studio, llama.cpp, vLLM)
type LLMService interface {
	// Chat sends the ordered message chain and returns the reply text.
	// When the last message has the assistant role, the model continues it
	// and only the continuation is returned.
	Chat(ctx context.Context, messages []domain.Message, opts ChatOptions) (string, error)

	// ModelName returns the name of the chat model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Zero means no limit.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Negative values leave the provider default.
	Temperature float64

	// CPUOnly keeps inference off the GPU where the provider supports it.
	CPUOnly bool
}
