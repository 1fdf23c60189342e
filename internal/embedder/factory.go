package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config holds embedder construction parameters, resolved from the
// application configuration.
type Config struct {
	Provider  string // "neural" or "lexical"
	BaseURL   string
	Model     string
	APIKey    string
	Dimension int
	Timeout   time.Duration
	CacheSize int
	VocabPath string // Lexical vocabulary location
}

// New creates the configured embedding provider. The choice is made once at
// process start; everything downstream sees only the Embedder interface.
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderNeural:
		return NewNeuralProvider(NeuralConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
			Cache:     NewCache(cfg.CacheSize),
		})
	case ProviderLexical, "":
		l := NewLexicalProvider()
		if cfg.VocabPath != "" {
			if err := l.LoadVocabulary(cfg.VocabPath); err != nil {
				return nil, fmt.Errorf("load vocabulary: %w", err)
			}
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
