// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the AI services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the embedding and chat services. No network calls are made;
// use Check to validate connectivity.
func Init(settings *domain.AppSettings) (*InitResult, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", domain.ErrConfiguration)
	}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		embedding.Close()
		return nil, err
	}

	return &InitResult{EmbeddingService: embedding, LLMService: llm}, nil
}

// pinger is satisfied by both embedding and chat services.
type pinger interface {
	Ping(ctx context.Context) error
}

// Check pings every non-nil service and joins the failures.
func (r *InitResult) Check(ctx context.Context) error {
	var errs []error
	if r.EmbeddingService != nil {
		if err := ping(ctx, r.EmbeddingService); err != nil {
			errs = append(errs, fmt.Errorf("embedding model %s: %w", r.EmbeddingService.ModelName(), err))
		}
	}
	if r.LLMService != nil {
		if err := ping(ctx, r.LLMService); err != nil {
			errs = append(errs, fmt.Errorf("chat model %s: %w", r.LLMService.ModelName(), err))
		}
	}
	return errors.Join(errs...)
}

func ping(ctx context.Context, svc pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding model is not configured", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}

// CreateLLMService creates the chat service selected by settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: chat model is not configured", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
