package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService reports on and maintains the vector index.
type IndexService struct {
	index driven.VectorIndex
}

// NewIndexService creates a new index service.
func NewIndexService(index driven.VectorIndex) *IndexService {
	return &IndexService{index: index}
}

// Info describes the index.
func (s *IndexService) Info(ctx context.Context) (domain.IndexInfo, error) {
	info, err := s.index.Info(ctx)
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("index info: %w", err)
	}
	return info, nil
}

// Clear removes every entry from the index.
func (s *IndexService) Clear(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	logger.Info("Index cleared")
	return nil
}
