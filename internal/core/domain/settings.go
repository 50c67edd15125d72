package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a model service for embeddings or chat.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or any server speaking its protocol.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name. It also keys the index directory.
	Model string

	// Dimensions is the vector length. Zero means the model's known default.
	Dimensions int

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Model == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds chat model configuration.
type LLMSettings struct {
	// Provider is the chat service provider.
	Provider AIProvider

	// Model is the chat model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature controls sampling randomness. Negative means provider default.
	Temperature float64

	// CPUOnly asks Ollama to keep every layer off the GPU.
	CPUOnly bool
}

// IsConfigured returns true if the chat provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Model == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls how documents are split.
type ChunkingSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// IngestSettings controls the ingestion pipeline.
type IngestSettings struct {
	// BatchSize is the number of chunks embedded and inserted together.
	BatchSize int

	// BatchInterval is the minimum delay between batches.
	BatchInterval time.Duration
}

// RetrievalSettings controls query-time retrieval.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per query.
	TopK int
}

// IndexSettings controls where vector indexes are stored.
type IndexSettings struct {
	// Dir is the root directory holding one subdirectory per embedding model.
	Dir string
}

// ChatSettings controls conversations.
type ChatSettings struct {
	// Mode is the default mode for new sessions.
	Mode string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Ingest    IngestSettings
	Retrieval RetrievalSettings
	Index     IndexSettings
	Chat      ChatSettings
}

// Default model service settings.
const (
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultLLMModel       = "llama3.2"
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultBatchInterval  = 100 * time.Millisecond
	DefaultMode           = "chef"
)

// DefaultAppSettings returns settings that work against a local Ollama.
// Index.Dir is left empty and resolved by the caller.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      DefaultEmbeddingModel,
			Dimensions: EmbeddingDimensions()[DefaultEmbeddingModel],
			BaseURL:    DefaultOllamaURL,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModel,
			BaseURL:     DefaultOllamaURL,
			Temperature: -1,
		},
		Chunking: ChunkingSettings{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		Ingest: IngestSettings{
			BatchSize:     DefaultBatchSize,
			BatchInterval: DefaultBatchInterval,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Chat: ChatSettings{
			Mode: DefaultMode,
		},
	}
}

// AllProviders returns every supported provider.
func AllProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: DefaultEmbeddingModel,
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each chat provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: DefaultLLMModel,
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
