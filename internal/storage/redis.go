package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"career-copilot-go/internal/config"
)

// Extraction cache key prefixes, one namespace per document kind.
const (
	resumeExtractionKeyPrefix = "extract:resume:"
	jdExtractionKeyPrefix     = "extract:jd:"
)

// ErrCacheMiss is returned when a key is absent. It wraps redis.Nil so
// callers never import the driver for the check.
var ErrCacheMiss = redis.Nil

// Redis caches LLM extraction responses keyed by a hash of the raw
// input text, so re-ingesting the same document skips the extraction
// call entirely.
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedis connects to Redis and instruments the client for tracing.
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// HashText derives the cache key hash for a raw document text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GetExtraction returns a cached extraction response, or ErrCacheMiss.
func (r *Redis) GetExtraction(ctx context.Context, prefix, textHash string) (string, error) {
	value, err := r.Client.Get(ctx, prefix+textHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("redis get %s: %w", prefix+textHash, err)
	}
	return value, nil
}

// SetExtraction stores an extraction response under the configured TTL.
func (r *Redis) SetExtraction(ctx context.Context, prefix, textHash, payload string) error {
	if err := r.Client.Set(ctx, prefix+textHash, payload, r.config.CacheTTL()).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", prefix+textHash, err)
	}
	return nil
}

// GetResumeExtraction looks up a cached résumé extraction by raw text.
func (r *Redis) GetResumeExtraction(ctx context.Context, rawText string) (string, error) {
	return r.GetExtraction(ctx, resumeExtractionKeyPrefix, HashText(rawText))
}

// SetResumeExtraction caches a résumé extraction response.
func (r *Redis) SetResumeExtraction(ctx context.Context, rawText, payload string) error {
	return r.SetExtraction(ctx, resumeExtractionKeyPrefix, HashText(rawText), payload)
}

// GetJDExtraction looks up a cached JD extraction by raw text.
func (r *Redis) GetJDExtraction(ctx context.Context, rawText string) (string, error) {
	return r.GetExtraction(ctx, jdExtractionKeyPrefix, HashText(rawText))
}

// SetJDExtraction caches a JD extraction response.
func (r *Redis) SetJDExtraction(ctx context.Context, rawText, payload string) error {
	return r.SetExtraction(ctx, jdExtractionKeyPrefix, HashText(rawText), payload)
}
