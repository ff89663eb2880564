package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the engine's full configuration surface (spec §6 "Config").
// Viper-backed so a host app may load it from YAML, env, or flags; every
// field also has a hard-coded default via DefaultConfig so the engine
// runs with no config file at all.
type Config struct {
	Profile     string            `mapstructure:"profile"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorIndex VectorIndexConfig `mapstructure:"vector_index"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Graph       GraphConfig       `mapstructure:"graph"`
	RestAPI     RestAPIConfig     `mapstructure:"rest_api"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Session     SessionConfig     `mapstructure:"session"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Provider    ProviderConfig    `mapstructure:"provider"`
}

// DatabaseConfig holds storage-engine configuration (spec §4.1, §6).
type DatabaseConfig struct {
	// Path is the on-disk database file; Validate rejects an empty Path.
	Path string `mapstructure:"path"`
	// StorageLocation records documents, application_support, caches, or
	// custom. It is loaded and defaulted only; nothing derives a directory
	// from it.
	StorageLocation string        `mapstructure:"storage_location"`
	Profile         string        `mapstructure:"profile"`
	BackupInterval  time.Duration `mapstructure:"backup_interval"`
	MaxBackups      int           `mapstructure:"max_backups"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	// EnableVecMirror additionally mirrors embeddings into a sqlite-vec
	// vec0 virtual table for diagnostic cross-checks (DESIGN.md enrichment).
	EnableVecMirror bool `mapstructure:"enable_vec_mirror"`
}

// EmbeddingConfig describes the external embedding provider contract
// (spec §6): the core validates every returned vector against Dimensions.
type EmbeddingConfig struct {
	Dimensions int    `mapstructure:"dimensions"`
	ModelID    string `mapstructure:"model_id"`
	// EntityExtractionConfidence is loaded and defaulted here (spec §6);
	// the extraction pipeline does not read it and applies no entity
	// confidence cut-off.
	EntityExtractionConfidence float64 `mapstructure:"entity_extraction_confidence"`
}

// VectorIndexConfig configures the Vector Index (spec §4.2, §6).
type VectorIndexConfig struct {
	// Kind selects "hnsw" or "linear".
	Kind           string `mapstructure:"kind"`
	M              int    `mapstructure:"m"`
	EfConstruction int    `mapstructure:"ef_construction"`
	EfSearch       int    `mapstructure:"ef_search"`
}

// RetrievalConfig configures the Retrieval Engine (spec §4.6, §6).
type RetrievalConfig struct {
	SimilarityThreshold         float64       `mapstructure:"similarity_threshold"`
	AutoLinkSimilarityThreshold float64       `mapstructure:"auto_link_similarity_threshold"`
	RecencyWeight               float64       `mapstructure:"recency_weight"`
	RecencyDecayFactor          float64       `mapstructure:"recency_decay_factor"`
	DefaultTopK                 int           `mapstructure:"default_top_k"`
	DefaultMaxResults           int           `mapstructure:"default_max_results"`
	MaxQueryTime                time.Duration `mapstructure:"max_query_time"`
}

// GraphConfig bounds graph-traversal operations (spec §6).
type GraphConfig struct {
	MaxGraphDepth int     `mapstructure:"max_graph_depth"`
	MinEdgeWeight float64 `mapstructure:"min_edge_weight"`
}

// RestAPIConfig holds the optional HTTP surface configuration
// (DESIGN.md enrichment, grounded on teacher's RestAPIConfig).
type RestAPIConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AutoPort     bool     `mapstructure:"auto_port"`
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	CORS         bool     `mapstructure:"cors"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	APIKey       string   `mapstructure:"api_key"`
}

// RateLimitConfig configures the optional HTTP surface's backpressure
// (spec §5 "Backpressure"), grounded on teacher's ratelimit package.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// SessionConfig controls session-id detection (teacher's strategies,
// kept per DESIGN.md "Session detection strategies").
type SessionConfig struct {
	AutoGenerate bool   `mapstructure:"auto_generate"`
	Strategy     string `mapstructure:"strategy"` // "git-directory", "manual", or "hash"
	ManualID     string `mapstructure:"manual_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// ProviderConfig points at the external embedding/LLM HTTP provider
// (spec §6), grounded on teacher's OllamaConfig.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	ChatModel string        `mapstructure:"chat_model"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns configuration with the engine's documented
// defaults (spec §4.2, §6).
func DefaultConfig() *Config {
	return &Config{
		Profile: "default",
		Database: DatabaseConfig{
			Path:            DatabasePath(),
			StorageLocation: "application_support",
			Profile:         "default",
			BackupInterval:  24 * time.Hour,
			MaxBackups:      7,
			AutoMigrate:     true,
			EnableVecMirror: false,
		},
		Embedding: EmbeddingConfig{
			Dimensions:                 768,
			ModelID:                    "nomic-embed-text",
			EntityExtractionConfidence: 0.6,
		},
		VectorIndex: VectorIndexConfig{
			Kind:           "hnsw",
			M:              16,
			EfConstruction: 200,
			EfSearch:       0, // not passed to the index; HNSW search uses ef=2*k
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold:         0.7,
			AutoLinkSimilarityThreshold: 0.8,
			RecencyWeight:               0.2,
			RecencyDecayFactor:          0.05,
			DefaultTopK:                 10,
			DefaultMaxResults:           50,
			MaxQueryTime:                5 * time.Second,
		},
		Graph: GraphConfig{
			MaxGraphDepth: 5,
			MinEdgeWeight: 0.1,
		},
		RestAPI: RestAPIConfig{
			Enabled:  true,
			AutoPort: true,
			Port:     3002,
			Host:     "localhost",
			CORS:     true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
		Session: SessionConfig{
			AutoGenerate: true,
			Strategy:     "git-directory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Provider: ProviderConfig{
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			ChatModel: "qwen2.5:3b",
			Timeout:   30 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file with fallback to defaults.
// Search order: ./config.yaml, ~/.mycelicmemory/config.yaml,
// /etc/mycelicmemory/config.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".mycelicmemory"))
	v.AddConfigPath("/etc/mycelicmemory")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("profile", d.Profile)

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.storage_location", d.Database.StorageLocation)
	v.SetDefault("database.profile", d.Database.Profile)
	v.SetDefault("database.backup_interval", d.Database.BackupInterval.String())
	v.SetDefault("database.max_backups", d.Database.MaxBackups)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("database.enable_vec_mirror", d.Database.EnableVecMirror)

	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.model_id", d.Embedding.ModelID)
	v.SetDefault("embedding.entity_extraction_confidence", d.Embedding.EntityExtractionConfidence)

	v.SetDefault("vector_index.kind", d.VectorIndex.Kind)
	v.SetDefault("vector_index.m", d.VectorIndex.M)
	v.SetDefault("vector_index.ef_construction", d.VectorIndex.EfConstruction)
	v.SetDefault("vector_index.ef_search", d.VectorIndex.EfSearch)

	v.SetDefault("retrieval.similarity_threshold", d.Retrieval.SimilarityThreshold)
	v.SetDefault("retrieval.auto_link_similarity_threshold", d.Retrieval.AutoLinkSimilarityThreshold)
	v.SetDefault("retrieval.recency_weight", d.Retrieval.RecencyWeight)
	v.SetDefault("retrieval.recency_decay_factor", d.Retrieval.RecencyDecayFactor)
	v.SetDefault("retrieval.default_top_k", d.Retrieval.DefaultTopK)
	v.SetDefault("retrieval.default_max_results", d.Retrieval.DefaultMaxResults)
	v.SetDefault("retrieval.max_query_time", d.Retrieval.MaxQueryTime.String())

	v.SetDefault("graph.max_graph_depth", d.Graph.MaxGraphDepth)
	v.SetDefault("graph.min_edge_weight", d.Graph.MinEdgeWeight)

	v.SetDefault("rest_api.enabled", d.RestAPI.Enabled)
	v.SetDefault("rest_api.auto_port", d.RestAPI.AutoPort)
	v.SetDefault("rest_api.port", d.RestAPI.Port)
	v.SetDefault("rest_api.host", d.RestAPI.Host)
	v.SetDefault("rest_api.cors", d.RestAPI.CORS)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst_size", d.RateLimit.BurstSize)

	v.SetDefault("session.auto_generate", d.Session.AutoGenerate)
	v.SetDefault("session.strategy", d.Session.Strategy)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.chat_model", d.Provider.ChatModel)
	v.SetDefault("provider.timeout", d.Provider.Timeout.String())
}

// Validate validates the configuration (spec §7 "Configuration" errors:
// invalid dimensions or thresholds refuse to start).
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxBackups < 0 {
		return fmt.Errorf("database.max_backups must be >= 0")
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be > 0")
	}

	switch c.VectorIndex.Kind {
	case "hnsw", "linear":
	default:
		return fmt.Errorf("vector_index.kind must be 'hnsw' or 'linear'")
	}

	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be in [0,1]")
	}
	if c.Retrieval.AutoLinkSimilarityThreshold < 0 || c.Retrieval.AutoLinkSimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.auto_link_similarity_threshold must be in [0,1]")
	}
	if c.Retrieval.RecencyWeight < 0 || c.Retrieval.RecencyWeight > 1 {
		return fmt.Errorf("retrieval.recency_weight must be in [0,1]")
	}
	if c.Retrieval.DefaultTopK <= 0 {
		return fmt.Errorf("retrieval.default_top_k must be > 0")
	}

	if c.RestAPI.Enabled {
		if c.RestAPI.Port < 1 || c.RestAPI.Port > 65535 {
			return fmt.Errorf("rest_api.port must be between 1 and 65535")
		}
		if c.RestAPI.Host == "" {
			return fmt.Errorf("rest_api.host is required when REST API is enabled")
		}
	}

	switch c.Session.Strategy {
	case "git-directory", "manual", "hash":
	default:
		return fmt.Errorf("session.strategy must be 'git-directory', 'manual', or 'hash'")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func (c *Config) EnsureConfigDir() error {
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the configuration directory.
func ConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".mycelicmemory")
}

// DatabasePath returns the default database file path, following the
// spec's "swiftmem_*.db" naming convention for the default profile.
func DatabasePath() string {
	return filepath.Join(ConfigPath(), "swiftmem_default.db")
}
