package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/localseek/localseek/pkg/types"
)

const (
	ProviderNeural = "neural"

	// DefaultNeuralModel is the default sentence-embedding model.
	DefaultNeuralModel = "text-embedding-3-small"

	// DefaultNeuralBaseURL is an OpenAI-compatible embeddings endpoint. A
	// locally served model (ollama, llama.cpp, text-embeddings-inference)
	// works by pointing base_url at it.
	DefaultNeuralBaseURL = "https://api.openai.com/v1"

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// defaultDimensions maps known models to their embedding dimension, used
// when the config does not pin one explicitly.
var defaultDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"all-MiniLM-L6-v2":       384,
	"nomic-embed-text":       768,
}

// NeuralProvider implements Embedder against an OpenAI-compatible
// embeddings API.
type NeuralProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NeuralConfig configures a NeuralProvider.
type NeuralConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
	Cache     *Cache
}

// NewNeuralProvider creates a neural embedder.
func NewNeuralProvider(cfg NeuralConfig) (*NeuralProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultNeuralModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNeuralBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultDimensions[cfg.Model]
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: unknown dimension for model %s", ErrUnknownProvider, cfg.Model)
	}
	return &NeuralProvider{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  dim,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cfg.Cache,
	}, nil
}

// Embed generates a single embedding, served from cache when possible.
func (n *NeuralProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if n.cache != nil {
		if vec, ok := n.cache.Get(hash); ok {
			return vec, nil
		}
	}
	vecs, err := n.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch calls the embeddings API once for all texts, with exponential
// backoff. A failure here wraps types.ErrEmbeddingUnavailable: it affects
// every file, so the caller halts the scan cycle.
func (n *NeuralProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	cfg := DefaultRetryConfig()
	vecs, err := retryWithBackoff(ctx, cfg, func() ([][]float32, error) {
		return n.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrEmbeddingUnavailable, n.model, err)
	}

	if n.cache != nil {
		for i, vec := range vecs {
			n.cache.Set(ComputeHash(texts[i]), vec)
		}
	}
	return vecs, nil
}

func (n *NeuralProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": n.model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(apiResp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vecs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProviderFailed, data.Index)
		}
		if len(data.Embedding) != n.dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrVectorDimension, len(data.Embedding), n.dimension)
		}
		vecs[data.Index] = data.Embedding
	}
	return vecs, nil
}

func (n *NeuralProvider) Dimension() int { return n.dimension }

func (n *NeuralProvider) Provider() string { return ProviderNeural }

func (n *NeuralProvider) Model() string { return n.model }

func (n *NeuralProvider) Version() string {
	return fmt.Sprintf("neural/%s/%d", n.model, n.dimension)
}

func (n *NeuralProvider) Close() error {
	n.httpClient.CloseIdleConnections()
	return nil
}
