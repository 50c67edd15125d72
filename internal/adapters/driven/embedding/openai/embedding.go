// Package openai provides an embedding service adapter for OpenAI and
// compatible APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// MaxRetries bounds retries on 429 and 5xx responses (default: 3).
	// Negative disables retries.
	MaxRetries int

	// RetryBase is the first backoff delay, doubled per attempt (default: 200ms).
	RetryBase time.Duration
}

// EmbeddingService generates embeddings using OpenAI API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxRetries int
	retryBase  time.Duration
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}

	// Unknown models stay at zero until the index sees a vector.
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dimensions,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{
		Model: s.model,
		Input: texts,
	}

	// Only include dimensions for text-embedding-3-* models
	if strings.HasPrefix(s.model, "text-embedding-3-") && s.dimensions > 0 {
		reqBody.Dimensions = s.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var body []byte
	for attempt := 0; ; attempt++ {
		var status int
		var retryAfter string
		body, status, retryAfter, err = s.post(ctx, jsonBody)
		if err == nil && status == http.StatusOK {
			break
		}
		if err == nil {
			err = responseError(status, body)
		}
		te := &domain.TransportError{Service: "openai", Op: "embed", StatusCode: status, Err: err}
		if ctx.Err() != nil || !te.Retryable() || attempt >= s.maxRetries {
			return nil, te
		}
		if !sleep(ctx, s.retryDelay(attempt, retryAfter)) {
			return nil, &domain.TransportError{Service: "openai", Op: "embed", Err: ctx.Err()}
		}
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, &domain.TransportError{Service: "openai", Op: "embed", StatusCode: http.StatusOK,
			Err: fmt.Errorf("decode response: %w", err)}
	}

	// Convert float64 to float32 and order by index
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			continue
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, &domain.TransportError{Service: "openai", Op: "embed", StatusCode: http.StatusOK,
				Err: fmt.Errorf("no embedding returned for input %d", i)}
		}
	}

	return embeddings, nil
}

// post sends one embeddings request and returns the raw body and status.
func (s *EmbeddingService) post(ctx context.Context, jsonBody []byte) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// retryDelay is exponential backoff capped at 5s, overridden by Retry-After.
func (s *EmbeddingService) retryDelay(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	d := s.retryBase << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// responseError extracts the API error message from a failed response.
func responseError(status int, body []byte) error {
	var resp embeddingResponse
	if json.Unmarshal(body, &resp) == nil && resp.Error != nil {
		if status == http.StatusNotFound || resp.Error.Type == "model_not_found" {
			return fmt.Errorf("%w: %s", domain.ErrModelNotFound, resp.Error.Message)
		}
		return errors.New(resp.Error.Message)
	}
	return errors.New(strings.TrimSpace(string(body)))
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.TransportError{Service: "openai", Op: "ping", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &domain.TransportError{Service: "openai", Op: "ping", StatusCode: resp.StatusCode,
			Err: responseError(resp.StatusCode, body)}
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
