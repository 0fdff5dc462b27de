// Package storage aggregates the persistence adapters: the MySQL
// document registry, the Qdrant fragment store, the Redis extraction
// cache and the MinIO raw-bytes store.
package storage

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/matcher"
	"career-copilot-go/internal/types"
)

// Storage bundles every persistence adapter. MySQL and Qdrant are
// required; Redis and MinIO are optional accelerators and degrade to
// nil when unconfigured or unreachable.
type Storage struct {
	MySQL  *MySQL
	Qdrant *Qdrant
	Redis  *Redis
	MinIO  *MinIO
}

var _ matcher.FragmentSearcher = (*Storage)(nil)

// NewStorage initializes every configured adapter. Failures of the
// optional adapters are logged and tolerated; failures of MySQL or
// Qdrant abort startup.
func NewStorage(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	s := &Storage{}
	var err error

	s.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("init mysql: %w", err)
	}

	s.Qdrant, err = NewQdrant(&cfg.Qdrant, embedder)
	if err != nil {
		s.MySQL.Close()
		return nil, fmt.Errorf("init qdrant: %w", err)
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, extraction responses will not be cached")
			s.Redis = nil
		}
	}

	if cfg.MinIO.Endpoint != "" {
		s.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("minio unavailable, raw document bytes will not be archived")
			s.MinIO = nil
		}
	}

	return s, nil
}

// SearchSimilarFragments delegates to the vector store. Together with
// GetFragmentsByDocument and CountDocuments it satisfies the matcher's
// searcher contract.
func (s *Storage) SearchSimilarFragments(ctx context.Context, queryText string, opts matcher.SearchOptions) ([]matcher.SearchHit, error) {
	return s.Qdrant.SearchSimilarFragments(ctx, queryText, opts)
}

// GetFragmentsByDocument delegates to the vector store.
func (s *Storage) GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error) {
	return s.Qdrant.GetFragmentsByDocument(ctx, documentID)
}

// CountDocuments serves the matcher from the document registry, which
// is authoritative for document existence.
func (s *Storage) CountDocuments(ctx context.Context, docType types.DocumentType) (int, error) {
	return s.MySQL.CountDocuments(ctx, docType)
}

// Close releases every held connection.
func (s *Storage) Close() {
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close mysql connection")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis connection")
		}
	}
	// Qdrant and MinIO use plain HTTP clients with nothing to close.
}
