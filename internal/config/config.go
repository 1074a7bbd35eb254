package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`        // application name
	Version     string `yaml:"version"`     // application version
	Environment string `yaml:"environment"` // "development" or "production"
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address string `yaml:"address"` // listen address, e.g. ":8080"
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // HMAC secret for bearer tokens
}

// OpenAIConfig configures the embedding and completion provider.
type OpenAIConfig struct {
	APIKey             string `yaml:"apiKey"`
	BaseURL            string `yaml:"baseURL"`            // optional, for proxies and compatible providers
	EmbeddingModel     string `yaml:"embeddingModel"`     // e.g. "text-embedding-3-large"
	CompletionModel    string `yaml:"completionModel"`    // e.g. "gpt-4o"
	EmbeddingDimension int    `yaml:"embeddingDimension"` // must match the vector index dimension
	MaxInputTokens     int    `yaml:"maxInputTokens"`     // embedding context window
}

// MySQLConfig configures the relational store.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// MilvusConfig configures the vector index.
type MilvusConfig struct {
	Address        string `yaml:"address"`
	CollectionName string `yaml:"collectionName"`
	Dimension      int    `yaml:"dimension"` // fixed at collection creation time
}

// RedisConfig configures the chat-history cache.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // cache entry lifetime, seconds
}

// MinIOConfig configures raw upload storage.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// DatabaseConfigs groups every backing store.
type DatabaseConfigs struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Milvus MilvusConfig `yaml:"milvus"`
	Redis  RedisConfig  `yaml:"redis"`
	MinIO  MinIOConfig  `yaml:"minio"`
}

// RAGConfig tunes the ingestion and query pipeline.
type RAGConfig struct {
	ChunkSize         int `yaml:"chunkSize"`         // characters per chunk
	ChunkOverlap      int `yaml:"chunkOverlap"`      // trailing characters carried into the next chunk
	TopK              int `yaml:"topK"`              // default retrieval depth
	UpsertBatchSize   int `yaml:"upsertBatchSize"`   // requested vectors per upsert call
	BatchDelayMs      int `yaml:"batchDelayMs"`      // sleep between upsert batches
	ReconcileInterval int `yaml:"reconcileInterval"` // seconds between reconciliation passes, 0 disables
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Databases DatabaseConfigs `yaml:"databases"`
	RAG       RAGConfig       `yaml:"rag"`
}

// LoadConfig reads and parses a YAML configuration file, applying defaults
// for tunables that are omitted.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.UpsertBatchSize == 0 {
		cfg.RAG.UpsertBatchSize = 100
	}
	if cfg.RAG.BatchDelayMs == 0 {
		cfg.RAG.BatchDelayMs = 100
	}
	if cfg.OpenAI.EmbeddingDimension == 0 {
		cfg.OpenAI.EmbeddingDimension = 3072
	}
	if cfg.OpenAI.MaxInputTokens == 0 {
		cfg.OpenAI.MaxInputTokens = 8191
	}
	if cfg.Databases.Milvus.Dimension == 0 {
		cfg.Databases.Milvus.Dimension = cfg.OpenAI.EmbeddingDimension
	}
}
