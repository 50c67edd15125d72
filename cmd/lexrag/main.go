// Command lexrag indexes documents and chats about them with local models.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexrag/internal/chunker"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/loaders"
	"github.com/custodia-labs/lexrag/internal/loaders/pdf"
	"github.com/custodia-labs/lexrag/internal/loaders/plaintext"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires every adapter for the configuration directory.
func bootstrap(configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config directory: %w", err)
		}
		configDir = dir
	}
	loadEnv(configDir)

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, filepath.Join(configDir, "index"))
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	if err := chunker.Validate(settings.Chunking.ChunkSize, settings.Chunking.Overlap); err != nil {
		return nil, err
	}

	models, err := ai.Init(settings)
	if err != nil {
		return nil, err
	}
	embedder := models.EmbeddingService

	index := sqlite.NewHandle(sqlite.Config{
		Root:       settings.Index.Dir,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
	})

	ck := chunker.New(
		chunker.WithChunkSize(settings.Chunking.ChunkSize),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	registry := loaders.NewRegistry(plaintext.New(), pdf.New())
	if err := pdf.CheckAvailable(); err != nil {
		logger.Debug("PDF loader unavailable: %v", err)
	}

	ingest := services.NewIngestService(registry, ck, embedder, index, services.IngestConfig{
		BatchSize:     settings.Ingest.BatchSize,
		BatchInterval: settings.Ingest.BatchInterval,
	})
	retriever := services.NewRetriever(embedder, index, settings.Retrieval.TopK)

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		models.Close()
		_ = index.Close()
		return nil, err
	}
	modes := services.NewModeRegistry(prompts, settings.Chat.Mode, services.DefaultModes()...)
	chat := services.NewChatService(modes, retriever, models.LLMService, driven.ChatOptions{
		Temperature: settings.LLM.Temperature,
		CPUOnly:     settings.LLM.CPUOnly,
	})

	return &cli.Services{
		Ingest:       ingest,
		Retriever:    retriever,
		Chat:         chat,
		Index:        services.NewIndexService(index),
		Settings:     settingsService,
		WatchPrompts: prompts.Watch,
		Check:        models.Check,
		Close: func() error {
			models.Close()
			return index.Close()
		},
	}, nil
}

// loadEnv reads .env from the working directory, then from configDir.
// Variables already set in the environment win.
func loadEnv(configDir string) {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("load %s: %v", path, err)
		}
	}
}
