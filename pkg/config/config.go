package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Vector    VectorConfig
	Milvus    MilvusConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Search    SearchConfig
	Sanitizer SanitizerConfig
	Convex    ConvexConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
	UploadDir    string
}

type VectorConfig struct {
	// Provider selects the vector store backend: "milvus" or "memory".
	Provider string
	// DataDir backs the memory provider's JSON persistence.
	DataDir string
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
	VectorDim      int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	EmbeddingTTLSec int
	MatchTTLSec     int
}

type LLMConfig struct {
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float32
	MaxTokens       int
	JudgeTimeoutSec int
	EmbeddingModel  string
}

type SearchConfig struct {
	VectorWeight float64
	ChunkSize    int
	ChunkOverlap int
}

type SanitizerConfig struct {
	Language  string
	EnableNER bool
}

type ConvexConfig struct {
	Enabled       bool
	DeploymentURL string
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
	viper.AddConfigPath("/etc/talentmatch")

	viper.SetEnvPrefix("TALENTMATCH")
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
	viper.SetDefault("server.readTimeout", 60)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)
	viper.SetDefault("server.uploadDir", "./data/uploads")

	viper.SetDefault("vector.provider", "milvus")
	viper.SetDefault("vector.dataDir", "./data/index")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "resume_chunks")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("sqlite.path", "./data/talentmatch.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.embeddingTTLSec", 86400)
	viper.SetDefault("redis.matchTTLSec", 600)

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.judgeTimeoutSec", 45)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")

	viper.SetDefault("search.vectorWeight", 0.7)
	viper.SetDefault("search.chunkSize", 500)
	viper.SetDefault("search.chunkOverlap", 50)

	viper.SetDefault("sanitizer.language", "en")
	viper.SetDefault("sanitizer.enableNER", true)

	viper.SetDefault("convex.enabled", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
