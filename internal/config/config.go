package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all recall configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	LogLevel  string          `mapstructure:"log_level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider      string `mapstructure:"provider"` // "anthropic", "openai", "ollama"
	Model         string `mapstructure:"model"`
	AnthropicKey  string `mapstructure:"anthropic_key"`
	OpenAIKey     string `mapstructure:"openai_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	OllamaURL     string `mapstructure:"ollama_url"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // "ollama", "openai", "hash"; empty probes ollama then falls back to hash
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	OllamaURL  string `mapstructure:"ollama_url"`
	OpenAIKey  string `mapstructure:"openai_key"`
}

type RetrievalConfig struct {
	DecayRate  float64       `mapstructure:"decay_rate"`
	Attempts   int           `mapstructure:"attempts"`    // plain-path retries on empty results
	RetryDelay time.Duration `mapstructure:"retry_delay"` // fixed inter-attempt delay
	MultiQuery bool          `mapstructure:"multi_query"` // LLM query expansion on time-weighted search
}

type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:  "", // disabled unless configured or detected from env
			OllamaURL: "http://localhost:11434",
		},
		Embedding: EmbeddingConfig{
			Provider:   "",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			OllamaURL:  "http://localhost:11434",
		},
		Retrieval: RetrievalConfig{
			DecayRate:  0.01,
			Attempts:   5,
			RetryDelay: 2 * time.Second,
			MultiQuery: true,
		},
		Ingest: IngestConfig{
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from a YAML file, overlaid with RECALL_* env vars.
// With an empty path it searches ~/.recall/ and the working directory; a
// missing file is fine there, while an explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".recall"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("llm.provider", def.LLM.Provider)
	v.SetDefault("llm.ollama_url", def.LLM.OllamaURL)
	v.SetDefault("embedding.provider", def.Embedding.Provider)
	v.SetDefault("embedding.model", def.Embedding.Model)
	v.SetDefault("embedding.dimensions", def.Embedding.Dimensions)
	v.SetDefault("embedding.ollama_url", def.Embedding.OllamaURL)
	v.SetDefault("retrieval.decay_rate", def.Retrieval.DecayRate)
	v.SetDefault("retrieval.attempts", def.Retrieval.Attempts)
	v.SetDefault("retrieval.retry_delay", def.Retrieval.RetryDelay)
	v.SetDefault("retrieval.multi_query", def.Retrieval.MultiQuery)
	v.SetDefault("ingest.chunk_size", def.Ingest.ChunkSize)
	v.SetDefault("ingest.chunk_overlap", def.Ingest.ChunkOverlap)
	v.SetDefault("log_level", def.LogLevel)
}

// ListenAddr returns the host:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
