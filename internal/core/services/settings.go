package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/chunker"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMCPUOnly     = "llm.cpu_only"
	keyChunkSize      = "chunking.size"
	keyChunkOverlap   = "chunking.overlap"
	keyBatchSize      = "ingest.batch_size"
	keyBatchInterval  = "ingest.batch_interval"
	keyRetrievalTopK  = "retrieval.top_k"
	keyIndexDir       = "index.dir"
	keyChatMode       = "chat.mode"
)

// Environment variables that override stored settings.
const (
	EnvOllamaURL      = "LEXRAG_OLLAMA_URL"
	EnvOllamaHost     = "OLLAMA_HOST"
	EnvLLMModel       = "LEXRAG_LLM_MODEL"
	EnvEmbeddingModel = "LEXRAG_EMBEDDING_MODEL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
)

type settingKind int

const (
	kindString settingKind = iota
	kindProvider
	kindPositiveInt
	kindNonNegativeInt
	kindFloat
	kindBool
	kindDuration
)

var settingKinds = map[string]settingKind{
	keyEmbedProvider:  kindProvider,
	keyEmbedModel:     kindString,
	keyEmbedDims:      kindNonNegativeInt,
	keyEmbedBaseURL:   kindString,
	keyEmbedAPIKey:    kindString,
	keyLLMProvider:    kindProvider,
	keyLLMModel:       kindString,
	keyLLMBaseURL:     kindString,
	keyLLMAPIKey:      kindString,
	keyLLMTemperature: kindFloat,
	keyLLMCPUOnly:     kindBool,
	keyChunkSize:      kindPositiveInt,
	keyChunkOverlap:   kindNonNegativeInt,
	keyBatchSize:      kindPositiveInt,
	keyBatchInterval:  kindDuration,
	keyRetrievalTopK:  kindPositiveInt,
	keyIndexDir:       kindString,
	keyChatMode:       kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore     driven.ConfigStore
	defaultIndexDir string
	lookupEnv       func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// indexDir is used when index.dir is not configured.
func NewSettingsService(configStore driven.ConfigStore, indexDir string) *SettingsService {
	return &SettingsService{
		configStore:     configStore,
		defaultIndexDir: indexDir,
		lookupEnv:       os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment lookup. Passing nil disables
// environment overrides.
func (s *SettingsService) SetEnvLookup(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	s.lookupEnv = lookup
}

// Get retrieves current application settings with defaults and
// environment overrides applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			CPUOnly:     s.configStore.GetBool(keyLLMCPUOnly),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			Overlap:   s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Ingest: domain.IngestSettings{
			BatchSize:     s.getInt(keyBatchSize, defaults.Ingest.BatchSize),
			BatchInterval: s.getDuration(keyBatchInterval, defaults.Ingest.BatchInterval),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
		},
		Index: domain.IndexSettings{
			Dir: s.getString(keyIndexDir, s.defaultIndexDir),
		},
		Chat: domain.ChatSettings{
			Mode: s.getString(keyChatMode, defaults.Chat.Mode),
		},
	}

	s.applyEnv(settings)

	// Dimensions follow the model unless pinned.
	settings.Embedding.Dimensions = s.configStore.GetInt(keyEmbedDims)
	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}

	// Local providers need a base URL; cloud providers use their own default.
	if settings.Embedding.BaseURL == "" && settings.Embedding.Provider.IsLocal() {
		settings.Embedding.BaseURL = defaults.Embedding.BaseURL
	}
	if settings.LLM.BaseURL == "" && settings.LLM.Provider.IsLocal() {
		settings.LLM.BaseURL = defaults.LLM.BaseURL
	}

	return settings, nil
}

// applyEnv overlays environment variables. They are never persisted.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	ollamaURL, ok := s.lookupEnv(EnvOllamaURL)
	if !ok || ollamaURL == "" {
		ollamaURL, ok = s.lookupEnv(EnvOllamaHost)
	}
	if ok && ollamaURL != "" {
		if !strings.Contains(ollamaURL, "://") {
			ollamaURL = "http://" + ollamaURL
		}
		if settings.Embedding.Provider == domain.AIProviderOllama {
			settings.Embedding.BaseURL = ollamaURL
		}
		if settings.LLM.Provider == domain.AIProviderOllama {
			settings.LLM.BaseURL = ollamaURL
		}
	}

	if model, ok := s.lookupEnv(EnvLLMModel); ok && model != "" {
		settings.LLM.Model = model
	}
	if model, ok := s.lookupEnv(EnvEmbeddingModel); ok && model != "" {
		settings.Embedding.Model = model
	}

	if key, ok := s.lookupEnv(EnvOpenAIKey); ok && key != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
			settings.LLM.APIKey = key
		}
	}
}

// Set validates and stores a single setting from its string form.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q (known: %s)",
			domain.ErrInvalidInput, key, strings.Join(s.Keys(), ", "))
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if key == keyChunkSize || key == keyChunkOverlap {
		current, err := s.Get()
		if err != nil {
			return err
		}
		size, overlap := current.Chunking.ChunkSize, current.Chunking.Overlap
		if key == keyChunkSize {
			size = parsed.(int)
		} else {
			overlap = parsed.(int)
		}
		if err := chunker.Validate(size, overlap); err != nil {
			return err
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored setting so its default applies again.
func (s *SettingsService) Unset(key string) error {
	if _, ok := settingKinds[key]; !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// Keys returns every supported setting key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that the stored settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %q with model %q is not usable",
			domain.ErrConfiguration, settings.Embedding.Provider, settings.Embedding.Model))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: chat provider %q with model %q is not usable",
			domain.ErrConfiguration, settings.LLM.Provider, settings.LLM.Model))
	}
	if err := chunker.Validate(settings.Chunking.ChunkSize, settings.Chunking.Overlap); err != nil {
		errs = append(errs, err)
	}
	if settings.Index.Dir == "" {
		errs = append(errs, fmt.Errorf("%w: index directory is not set", domain.ErrConfiguration))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	defaults.Index.Dir = s.defaultIndexDir
	return defaults
}

// Path returns where settings are persisted.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return p.String(), nil
	case kindPositiveInt, kindNonNegativeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		if kind == kindPositiveInt && n <= 0 {
			return nil, fmt.Errorf("must be positive, got %d", n)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative, got %d", n)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", value)
		}
		return b, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("not a duration: %q", value)
		}
		if d < 0 {
			return nil, fmt.Errorf("must not be negative, got %s", d)
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
