// Package embedder maps text to fixed-length vectors behind one capability
// interface.
//
// Two variants exist: a neural provider backed by a sentence-embedding model
// served over HTTP, and a lexical provider computing TF-IDF statistics over a
// corpus-derived vocabulary. The variant is chosen once at process start; the
// rest of the engine is agnostic to which is active. Vectors from different
// variants are never mixed in one index: each provider reports a Version
// string and the indexer forces a full rebuild when it changes.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrNotFitted       = errors.New("lexical vocabulary not fitted")
	ErrVectorDimension = errors.New("vector dimension mismatch")
	ErrProviderFailed  = errors.New("embedding provider failed")
)

// Embedder generates fixed-dimension embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension D.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model identifier.
	Model() string

	// Version identifies the vector space. Embeddings carrying different
	// versions are incomparable; a version change requires a full rebuild.
	Version() string

	// Close releases any resources held by the embedder.
	Close() error
}

// CorpusTrainer is implemented by providers whose vector space is derived
// from the indexed corpus (the lexical variant). The indexer fits such a
// provider before the first embedding pass.
type CorpusTrainer interface {
	Fitted() bool
	Fit(corpus []string) error
}

// CosineSimilarity computes cosine similarity between two vectors, in
// [-1, 1]. Mismatched dimensions or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeScore maps a cosine similarity onto the [0, 1] scoring scale.
// Negative cosines clamp to zero: anti-correlated content scores as
// irrelevant, not as half-relevant.
func NormalizeScore(cos float64) float64 {
	if cos <= 0 {
		return 0
	}
	if cos >= 1 {
		return 1
	}
	return cos
}

// ComputeHash returns the cache key for a text.
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size, which is handled above.
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector, so caller mutations cannot
// pollute the cache.
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector with automatic LRU eviction.
func (c *Cache) Set(hash string, vec []float32) {
	c.cache.Add(hash, vec)
}

// Len returns the current cache size.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
