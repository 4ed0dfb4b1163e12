package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veloce-ai/veloce/pkg/models"
)

// Config holds all veloce configuration.
type Config struct {
	Listen   string             `yaml:"listen"`
	DBPath   string             `yaml:"db_path"`
	Cache    CacheConfig        `yaml:"cache"`
	Embedder EmbedderConfig     `yaml:"embedder"`
	Audit    models.AuditConfig `yaml:"audit"`
}

// CacheConfig controls the embedding cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // "memory", "file", or "hybrid"
	TTL             time.Duration `yaml:"ttl"`
	MaxSize         int           `yaml:"max_size"`
	Dir             string        `yaml:"dir"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// EmbedderConfig controls the embedding generator.
type EmbedderConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	Dimensions      int           `yaml:"dimensions"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxTextLength   int           `yaml:"max_text_length"`
	CostPer1KTokens float64       `yaml:"cost_per_1k_tokens"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "veloce.db",
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             24 * time.Hour,
			MaxSize:         10000,
			CleanupInterval: time.Hour,
		},
		Embedder: EmbedderConfig{
			APIKey:     "${OPENAI_API_KEY}",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Audit: models.AuditConfig{
			Enabled:       false,
			DBPath:        "veloce_audit.db",
			RetentionDays: 30,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Default() carries the env placeholder; expand it when the file did
	// not override the key.
	cfg.Embedder.APIKey = os.ExpandEnv(cfg.Embedder.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "file", "hybrid":
	default:
		return fmt.Errorf("invalid cache backend %q", c.Cache.Backend)
	}
	if (c.Cache.Backend == "file" || c.Cache.Backend == "hybrid") && c.Cache.Dir == "" {
		return fmt.Errorf("cache backend %q requires cache.dir", c.Cache.Backend)
	}
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache.max_size must not be negative")
	}
	if c.Embedder.MaxRetries < 0 {
		return fmt.Errorf("embedder.max_retries must not be negative")
	}
	return nil
}
