// Package config loads the localseek configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ScanConfig configures filesystem scanning and the indexing worker pool.
type ScanConfig struct {
	Roots           []string `yaml:"roots"`
	ExcludeDirs     []string `yaml:"exclude_dirs"`
	MaxFileSizeMB   int      `yaml:"max_file_size_mb"`
	Workers         int      `yaml:"workers"`
	WatchDebounceMS int      `yaml:"watch_debounce_ms"`
}

// EmbeddingConfig selects and configures the embedding provider. The variant
// is chosen once at process start; switching requires a full rebuild.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "neural" or "lexical"
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"` // 0 means the model default
	TimeoutSecs int    `yaml:"timeout_secs"`
	CacheSize   int    `yaml:"cache_size"`
}

// ChunkingConfig configures how extracted text is split into chunks.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"` // Window size in runes
	Overlap   int `yaml:"overlap"`    // Overlap between consecutive windows
}

// Weights are the relative contributions to the final ranking score.
// They are normalized at use, so they need not sum to one.
type Weights struct {
	Semantic float64 `yaml:"semantic"`
	Recency  float64 `yaml:"recency"`
	Lexical  float64 `yaml:"lexical"`
}

// SearchConfig configures retrieval and ranking.
type SearchConfig struct {
	TopK                int     `yaml:"top_k"`       // Nearest-neighbor candidates fetched
	MaxResults          int     `yaml:"max_results"` // Results returned per query
	MinSimilarity       float64 `yaml:"min_similarity"`
	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days"`
	Weights             Weights `yaml:"weights"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the root configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"` // Database and vocabulary location
	Scan      ScanConfig      `yaml:"scan"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Log       LogConfig       `yaml:"log"`
}

// APIKey resolves the embedding API key from the configured environment
// variable. Empty when unset.
func (c *Config) APIKey() string {
	if c.Embedding.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".localseek"),
		Scan: ScanConfig{
			Roots:           []string{filepath.Join(home, "Documents")},
			MaxFileSizeMB:   50,
			Workers:         0, // 0 means runtime.NumCPU()
			WatchDebounceMS: 2000,
		},
		Embedding: EmbeddingConfig{
			Provider:    "lexical",
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "LOCALSEEK_API_KEY",
			TimeoutSecs: 30,
			CacheSize:   10000,
		},
		Chunking: ChunkingConfig{
			ChunkSize: 1200,
			Overlap:   200,
		},
		Search: SearchConfig{
			TopK:                50,
			MaxResults:          10,
			MinSimilarity:       0.05,
			RecencyHalfLifeDays: 30,
			Weights: Weights{
				Semantic: 0.6,
				Recency:  0.25,
				Lexical:  0.15,
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a config from path. A missing file yields the defaults; a
// present file is merged over them.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults backfills zero values left by a sparse config file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = def.Scan.Roots
	}
	if cfg.Scan.MaxFileSizeMB <= 0 {
		cfg.Scan.MaxFileSizeMB = def.Scan.MaxFileSizeMB
	}
	if cfg.Scan.WatchDebounceMS <= 0 {
		cfg.Scan.WatchDebounceMS = def.Scan.WatchDebounceMS
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = def.Embedding.APIKeyEnv
	}
	if cfg.Embedding.TimeoutSecs <= 0 {
		cfg.Embedding.TimeoutSecs = def.Embedding.TimeoutSecs
	}
	if cfg.Embedding.CacheSize <= 0 {
		cfg.Embedding.CacheSize = def.Embedding.CacheSize
	}
	if cfg.Chunking.ChunkSize <= 0 {
		cfg.Chunking.ChunkSize = def.Chunking.ChunkSize
	}
	if cfg.Chunking.Overlap < 0 || cfg.Chunking.Overlap >= cfg.Chunking.ChunkSize {
		cfg.Chunking.Overlap = def.Chunking.Overlap
		if cfg.Chunking.Overlap >= cfg.Chunking.ChunkSize {
			cfg.Chunking.Overlap = cfg.Chunking.ChunkSize / 4
		}
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = def.Search.TopK
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = def.Search.MaxResults
	}
	if cfg.Search.MinSimilarity < 0 {
		cfg.Search.MinSimilarity = def.Search.MinSimilarity
	}
	if cfg.Search.RecencyHalfLifeDays <= 0 {
		cfg.Search.RecencyHalfLifeDays = def.Search.RecencyHalfLifeDays
	}
	w := &cfg.Search.Weights
	if w.Semantic <= 0 && w.Recency <= 0 && w.Lexical <= 0 {
		*w = def.Search.Weights
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}
