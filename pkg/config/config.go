package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Milvus     MilvusConfig
	Embeddings EmbeddingsConfig
	Matching   MatchingConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type EmbeddingsConfig struct {
	APIKey        string
	Model         string
	Dimensions    int
	MaxInputChars int
	ChunkOverlap  int
	CacheTTLSec   int
}

type MatchingConfig struct {
	ConfigCacheTTLSec   int
	SemanticTimeoutSec  int
	ComponentTimeoutSec int
	BatchConcurrency    int
	ResultCacheTTLSec   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/govbizai")

	viper.SetEnvPrefix("GOVBIZAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/govbizai.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "entity_embeddings")
	viper.SetDefault("milvus.vectorDim", 1024)

	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.dimensions", 1024)
	viper.SetDefault("embeddings.maxInputChars", 24000)
	viper.SetDefault("embeddings.chunkOverlap", 200)
	viper.SetDefault("embeddings.cacheTTLSec", 86400)

	viper.SetDefault("matching.configCacheTTLSec", 300)
	viper.SetDefault("matching.semanticTimeoutSec", 5)
	viper.SetDefault("matching.componentTimeoutSec", 1)
	viper.SetDefault("matching.batchConcurrency", 8)
	viper.SetDefault("matching.resultCacheTTLSec", 600)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
