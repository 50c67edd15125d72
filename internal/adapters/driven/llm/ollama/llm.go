// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = domain.DefaultOllamaURL
	DefaultLLMModel   = domain.DefaultLLMModel
	DefaultLLMTimeout = 120 * time.Second
)

// ServeHint is shown when the Ollama server cannot be reached.
const ServeHint = "Make sure 'ollama serve' is running"

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides chat completions using Ollama.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
}

// options holds generation parameters. Pointers keep explicit zeros.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	NumGPU      *int     `json:"num_gpu,omitempty"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// errorResponse is the body Ollama sends with non-200 statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// buildOptions maps ChatOptions to Ollama options, nil when all are defaults.
func buildOptions(opts driven.ChatOptions) *options {
	o := &options{NumPredict: opts.MaxTokens}
	if opts.Temperature >= 0 {
		t := opts.Temperature
		o.Temperature = &t
	}
	if opts.CPUOnly {
		zero := 0
		o.NumGPU = &zero
	}
	if o.NumPredict == 0 && o.Temperature == nil && o.NumGPU == nil {
		return nil
	}
	return o
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []domain.Message, opts driven.ChatOptions) (string, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		}
	}

	reqBody := chatRequest{
		Model:    s.model,
		Messages: chatMessages,
		Stream:   false,
		Options:  buildOptions(opts),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", s.transportError("chat", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.statusError("chat", resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", s.transportError("chat", resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	return chatResp.Message.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return s.transportError("ping", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.statusError("ping", resp)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

func (s *LLMService) statusError(op string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.transportError(op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	msg := strings.TrimSpace(string(body))
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	if resp.StatusCode == http.StatusNotFound && strings.Contains(msg, "not found") {
		return s.transportError(op, resp.StatusCode, fmt.Errorf("%w: %s", domain.ErrModelNotFound, msg))
	}
	return s.transportError(op, resp.StatusCode, errors.New(msg))
}

func (s *LLMService) transportError(op string, status int, err error) error {
	te := &domain.TransportError{
		Service:    "ollama",
		Op:         op,
		StatusCode: status,
		Err:        err,
	}
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		te.Hint = fmt.Sprintf("Run 'ollama pull %s'", s.model)
	case status == 0:
		te.Hint = ServeHint
	}
	return te
}
