package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const ProviderLexical = "lexical"

// tokenPattern matches word-like runs; it keeps simple apostrophes intact.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:'\p{L}+)*|\p{N}+`)

// LexicalProvider is the frequency-statistics fallback variant: a TF-IDF
// vectorizer over a corpus-derived vocabulary. Dimension equals the
// vocabulary size, so the provider must be fitted (or loaded from a saved
// vocabulary) before it can embed.
type LexicalProvider struct {
	mu         sync.RWMutex
	vocabulary map[string]int
	idf        []float32
	terms      []string
	vocabHash  string
	stopwords  map[string]struct{}
}

// NewLexicalProvider creates an unfitted lexical provider.
func NewLexicalProvider() *LexicalProvider {
	return &LexicalProvider{stopwords: defaultStopwords()}
}

// Fitted reports whether a vocabulary is available.
func (l *LexicalProvider) Fitted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.terms) > 0
}

// Fit builds the vocabulary and smoothed IDF values from the corpus. Term
// ordering is sorted, so the same corpus always produces the same space.
func (l *LexicalProvider) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return fmt.Errorf("%w: empty corpus", ErrProviderFailed)
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range l.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("%w: no tokens found in corpus", ErrProviderFailed)
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float32, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed IDF keeps every term's weight positive.
		idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}

	l.mu.Lock()
	l.vocabulary = vocab
	l.idf = idf
	l.terms = terms
	l.vocabHash = hashTerms(terms)
	l.mu.Unlock()
	return nil
}

// Embed computes the TF-IDF vector for text, L2-normalized. Terms outside
// the vocabulary contribute nothing.
func (l *LexicalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.terms) == 0 {
		return nil, ErrNotFitted
	}

	vec := make([]float32, len(l.terms))
	total := 0
	for _, tok := range l.tokenize(text) {
		if idx, ok := l.vocabulary[tok]; ok {
			vec[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}

	var norm float64
	for i := range vec {
		vec[i] = vec[i] / float32(total) * l.idf[i]
		norm += float64(vec[i]) * float64(vec[i])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (l *LexicalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (l *LexicalProvider) Dimension() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.terms)
}

func (l *LexicalProvider) Provider() string { return ProviderLexical }

func (l *LexicalProvider) Model() string { return "tfidf" }

// Version folds the vocabulary hash in, so a refitted vocabulary is a
// different vector space.
func (l *LexicalProvider) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fmt.Sprintf("lexical/tfidf/%s/%d", l.vocabHash, len(l.terms))
}

func (l *LexicalProvider) Close() error { return nil }

// Tokenize lowercases text and splits it into word and number tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func (l *LexicalProvider) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	toks := raw[:0]
	for _, tok := range raw {
		if _, stop := l.stopwords[tok]; !stop {
			toks = append(toks, tok)
		}
	}
	return toks
}

// vocabFile is the on-disk vocabulary layout.
type vocabFile struct {
	Terms []string  `json:"terms"`
	IDF   []float32 `json:"idf"`
}

// SaveVocabulary persists the fitted vocabulary to path.
func (l *LexicalProvider) SaveVocabulary(path string) error {
	l.mu.RLock()
	vf := vocabFile{Terms: l.terms, IDF: l.idf}
	l.mu.RUnlock()
	if len(vf.Terms) == 0 {
		return ErrNotFitted
	}
	data, err := json.Marshal(vf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadVocabulary restores a previously saved vocabulary. A missing file is
// not an error; the provider simply stays unfitted.
func (l *LexicalProvider) LoadVocabulary(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var vf vocabFile
	if err := json.Unmarshal(data, &vf); err != nil || len(vf.Terms) != len(vf.IDF) {
		// Corrupt vocabulary degrades to unfitted, forcing a refit.
		return nil
	}
	vocab := make(map[string]int, len(vf.Terms))
	for i, term := range vf.Terms {
		vocab[term] = i
	}
	l.mu.Lock()
	l.vocabulary = vocab
	l.idf = vf.IDF
	l.terms = vf.Terms
	l.vocabHash = hashTerms(vf.Terms)
	l.mu.Unlock()
	return nil
}

func hashTerms(terms []string) string {
	h := sha256.New()
	for _, t := range terms {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
