package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"career-copilot-go/internal/logger"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string   `yaml:"address"`
	APIKeys []string `yaml:"api_keys"` // keys accepted by the keyauth middleware; empty disables auth
}

// LLMConfig holds settings for the chat-model collaborators (field
// extraction and deep evaluation).
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	APIURL         string `yaml:"api_url"`
	ExtractorModel string `yaml:"extractor_model"`
	EvaluatorModel string `yaml:"evaluator_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // bounded wait per LLM call
	MaxAttempts    int    `yaml:"max_attempts"`    // retry ceiling per LLM call
}

// EmbeddingConfig holds settings for the text embedder backing the
// vector store adapter.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// QdrantConfig holds vector database settings.
type QdrantConfig struct {
	Endpoint           string `yaml:"endpoint"`
	Collection         string `yaml:"collection"`
	Dimension          int    `yaml:"dimension"`
	APIKey             string `yaml:"api_key,omitempty"`
	DefaultSearchLimit int    `yaml:"default_search_limit"`
}

// MySQLConfig holds the document registry database settings.
type MySQLConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// DSN builds the MySQL connection string.
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig holds settings for the extraction-response cache.
type RedisConfig struct {
	Address             string `yaml:"address"`
	Password            string `yaml:"password"`
	DB                  int    `yaml:"db"`
	PoolSize            int    `yaml:"pool_size"`
	MinIdleConns        int    `yaml:"min_idle_conns"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	CacheTTLDays        int    `yaml:"cache_ttl_days"` // TTL for cached extraction responses
}

// CacheTTL returns the extraction-response cache TTL as a duration.
func (c *RedisConfig) CacheTTL() time.Duration {
	days := c.CacheTTLDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// MinIOConfig holds settings for raw document byte storage.
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
	Location        string `yaml:"location"`
}

// ChunkingConfig holds the fragment size band. Token counts are
// whitespace-delimited word estimates, not tokenizer output.
type ChunkingConfig struct {
	MinTokens   int `yaml:"min_tokens"`
	IdealTokens int `yaml:"ideal_tokens"`
	MaxTokens   int `yaml:"max_tokens"`
}

// MatchingConfig holds funnel parameters and score thresholds.
type MatchingConfig struct {
	RoughTopK             int     `yaml:"rough_top_k"`
	HybridRoughTopK       int     `yaml:"hybrid_rough_top_k"`
	HybridPreciseTopN     int     `yaml:"hybrid_precise_top_n"`
	MinMatchScore         float64 `yaml:"min_match_score"`
	StrongMatchThreshold  float64 `yaml:"strong_match_threshold"`
	GoodMatchThreshold    float64 `yaml:"good_match_threshold"`
	PartialMatchThreshold float64 `yaml:"partial_match_threshold"`
	ChunkPreviewLength    int     `yaml:"chunk_preview_length"`
}

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    logger.Config   `yaml:"logger"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Matching  MatchingConfig  `yaml:"matching"`
}

// LoadConfig reads configuration from a YAML file, overrides secrets from
// the environment and fills defaults. An empty path falls back to
// ./config.yaml; a missing file yields the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	config := createDefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Secrets come from the environment when present.
	if envKey := os.Getenv("LLM_API_KEY"); envKey != "" {
		config.LLM.APIKey = envKey
	}
	if envKey := os.Getenv("EMBEDDING_API_KEY"); envKey != "" {
		config.Embedding.APIKey = envKey
	}
	if envKey := os.Getenv("QDRANT_API_KEY"); envKey != "" {
		config.Qdrant.APIKey = envKey
	}

	config.applyDefaults()
	return config, nil
}

// createDefaultConfig returns a configuration with every default filled
// in, used when no config file is present (tests in particular).
func createDefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}

	if c.LLM.ExtractorModel == "" {
		c.LLM.ExtractorModel = "qwen-plus"
	}
	if c.LLM.EvaluatorModel == "" {
		c.LLM.EvaluatorModel = "qwen-plus"
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = 3
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-v3"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}

	if c.Qdrant.Endpoint == "" {
		c.Qdrant.Endpoint = "http://localhost:6333"
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "fragments"
	}
	if c.Qdrant.Dimension <= 0 {
		c.Qdrant.Dimension = c.Embedding.Dimensions
	}
	if c.Qdrant.DefaultSearchLimit <= 0 {
		c.Qdrant.DefaultSearchLimit = 10
	}

	if c.MySQL.Host == "" {
		c.MySQL.Host = "localhost"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.Database == "" {
		c.MySQL.Database = "career_copilot"
	}
	if c.MySQL.MaxIdleConns <= 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.MaxOpenConns <= 0 {
		c.MySQL.MaxOpenConns = 50
	}
	if c.MySQL.ConnMaxLifetime <= 0 {
		c.MySQL.ConnMaxLifetime = 60
	}

	if c.Redis.Address == "" {
		c.Redis.Address = "localhost:6379"
	}
	if c.Redis.PoolSize <= 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeoutSeconds <= 0 {
		c.Redis.DialTimeoutSeconds = 5
	}
	if c.Redis.ReadTimeoutSeconds <= 0 {
		c.Redis.ReadTimeoutSeconds = 3
	}
	if c.Redis.WriteTimeoutSeconds <= 0 {
		c.Redis.WriteTimeoutSeconds = 3
	}
	if c.Redis.CacheTTLDays <= 0 {
		c.Redis.CacheTTLDays = 30
	}

	if c.MinIO.Endpoint == "" {
		c.MinIO.Endpoint = "localhost:9000"
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = "raw-documents"
	}

	if c.Chunking.MinTokens <= 0 {
		c.Chunking.MinTokens = 50
	}
	if c.Chunking.IdealTokens <= 0 {
		c.Chunking.IdealTokens = 256
	}
	if c.Chunking.MaxTokens <= 0 {
		c.Chunking.MaxTokens = 512
	}

	if c.Matching.RoughTopK <= 0 {
		c.Matching.RoughTopK = 50
	}
	if c.Matching.HybridRoughTopK <= 0 {
		c.Matching.HybridRoughTopK = 50
	}
	if c.Matching.HybridPreciseTopN <= 0 {
		c.Matching.HybridPreciseTopN = 10
	}
	if c.Matching.MinMatchScore <= 0 {
		c.Matching.MinMatchScore = 60
	}
	if c.Matching.StrongMatchThreshold <= 0 {
		c.Matching.StrongMatchThreshold = 80
	}
	if c.Matching.GoodMatchThreshold <= 0 {
		c.Matching.GoodMatchThreshold = 65
	}
	if c.Matching.PartialMatchThreshold <= 0 {
		c.Matching.PartialMatchThreshold = 50
	}
	if c.Matching.ChunkPreviewLength <= 0 {
		c.Matching.ChunkPreviewLength = 200
	}
}
