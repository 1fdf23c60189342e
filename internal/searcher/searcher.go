package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/localseek/localseek/internal/embedder"
	"github.com/localseek/localseek/internal/storage"
	"github.com/localseek/localseek/pkg/types"
)

const (
	queryCacheSize = 256

	// feedbackChunks is how many top candidates feed self-expansion, and
	// feedbackTerms how many terms they may contribute.
	feedbackChunks = 3
	feedbackTerms  = 3
)

// Config holds the retrieval and ranking parameters.
type Config struct {
	TopK                int     // Nearest-neighbor candidates fetched before grouping
	MaxResults          int     // Default result cap when the query does not set one
	MinSimilarity       float64 // Semantic floor below which candidates are dropped
	RecencyHalfLifeDays float64 // Age at which the recency signal halves
	SemanticWeight      float64
	RecencyWeight       float64
	LexicalWeight       float64
}

// DefaultConfig returns the ranking parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		TopK:                50,
		MaxResults:          10,
		MinSimilarity:       0.05,
		RecencyHalfLifeDays: 30,
		SemanticWeight:      0.6,
		RecencyWeight:       0.25,
		LexicalWeight:       0.15,
	}
}

// Searcher executes analyzed queries against the vector index and ranks the
// survivors. Reads only ever see fully committed documents, so searching
// during an in-flight scan is safe.
type Searcher struct {
	store    storage.Storage
	embedder embedder.Embedder
	cfg      Config
	log      *zap.Logger
	cache    *lru.Cache[[32]byte, []types.Result]
	now      func() time.Time
}

// Option customizes a Searcher.
type Option func(*Searcher)

// WithClock fixes the reference time used for recency decay.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) { s.now = now }
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, emb embedder.Embedder, cfg Config, log *zap.Logger, opts ...Option) *Searcher {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.RecencyHalfLifeDays <= 0 {
		cfg.RecencyHalfLifeDays = DefaultConfig().RecencyHalfLifeDays
	}
	if cfg.SemanticWeight <= 0 && cfg.RecencyWeight <= 0 && cfg.LexicalWeight <= 0 {
		def := DefaultConfig()
		cfg.SemanticWeight = def.SemanticWeight
		cfg.RecencyWeight = def.RecencyWeight
		cfg.LexicalWeight = def.LexicalWeight
	}
	if log == nil {
		log = zap.NewNop()
	}

	cache, err := lru.New[[32]byte, []types.Result](queryCacheSize)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}

	s := &Searcher{
		store:    store,
		embedder: emb,
		cfg:      cfg,
		log:      log,
		cache:    cache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InvalidateCache drops all cached query results. The indexer calls this
// after every scan that changed the index.
func (s *Searcher) InvalidateCache() {
	s.cache.Purge()
}

// Search executes one analyzed query and returns ranked, explained results.
// An empty return means nothing cleared the similarity floor.
func (s *Searcher) Search(ctx context.Context, qc *types.QueryContext) ([]types.Result, error) {
	if qc == nil || qc.Normalized == "" {
		return nil, types.ErrEmptyQuery
	}

	key := s.cacheKey(qc)
	if cached, ok := s.cache.Get(key); ok {
		return copyResults(cached), nil
	}

	start := time.Now()
	text := qc.ExpandedText()
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := s.store.SearchVector(ctx, vector, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Self-expansion: frequent informative terms from the best chunks are
	// folded into the query text for a second pass.
	if extra := s.feedbackTerms(candidates, qc); len(extra) > 0 {
		qc.ExpandedTerms = append(qc.ExpandedTerms, extra...)
		vector, err = s.embedder.Embed(ctx, qc.ExpandedText())
		if err != nil {
			return nil, fmt.Errorf("embedding expanded query: %w", err)
		}
		candidates, err = s.store.SearchVector(ctx, vector, s.cfg.TopK)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
	}

	results, err := s.rank(ctx, qc, candidates)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, copyResults(results))
	s.log.Debug("search complete",
		zap.String("query", qc.Normalized),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}

// rank groups candidates by document, applies constraint post-filters, and
// scores the survivors.
func (s *Searcher) rank(ctx context.Context, qc *types.QueryContext, candidates []storage.VectorResult) ([]types.Result, error) {
	// Best chunk represents its document
	best := make(map[string]storage.VectorResult)
	for _, c := range candidates {
		cur, ok := best[c.DocumentID]
		if !ok || c.Similarity > cur.Similarity {
			best[c.DocumentID] = c
		}
	}

	now := s.now()
	queryTerms := append(append([]string{}, qc.Terms...), qc.ExpandedTerms...)

	results := make([]types.Result, 0, len(best))
	for docID, chunk := range best {
		similarity := embedder.NormalizeScore(chunk.Similarity)
		if similarity < s.cfg.MinSimilarity {
			continue
		}

		doc, err := s.store.GetDocument(ctx, docID)
		if err == storage.ErrNotFound {
			// Removed between retrieval and ranking
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading document %s: %w", docID, err)
		}
		if !matchesConstraints(doc, qc.Constraints) {
			continue
		}

		recency := s.recencyBoost(now, doc.ModTime)
		matched := matchedTerms(queryTerms, chunk.Content, doc.Path)
		lexical := lexicalBonus(queryTerms, matched)

		r := types.Result{
			DocumentID:   doc.ID,
			Path:         doc.Path,
			Similarity:   similarity,
			RecencyBoost: recency,
			LexicalBonus: lexical,
			Score:        s.combine(similarity, recency, lexical),
			Category:     doc.Category,
			Preview:      doc.Preview,
			ModTime:      doc.ModTime,
			MatchedTerms: matched,
		}
		r.Explanation = Explain(&r, qc)
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].ModTime.Equal(results[j].ModTime) {
			return results[i].ModTime.After(results[j].ModTime)
		}
		return results[i].Path < results[j].Path
	})

	limit := qc.MaxResults
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// combine folds the three signals into one score, normalizing the weights.
func (s *Searcher) combine(similarity, recency, lexical float64) float64 {
	total := s.cfg.SemanticWeight + s.cfg.RecencyWeight + s.cfg.LexicalWeight
	score := (similarity*s.cfg.SemanticWeight + recency*s.cfg.RecencyWeight + lexical*s.cfg.LexicalWeight) / total
	return math.Min(1, math.Max(0, score))
}

// recencyBoost decays monotonically with document age, halving every
// configured half-life.
func (s *Searcher) recencyBoost(now time.Time, modTime time.Time) float64 {
	if modTime.IsZero() || modTime.After(now) {
		return 1
	}
	ageDays := now.Sub(modTime).Hours() / 24
	return math.Pow(0.5, ageDays/s.cfg.RecencyHalfLifeDays)
}

// matchesConstraints applies the extracted filters to a document.
func matchesConstraints(doc *types.Document, c types.Constraints) bool {
	if !c.Since.IsZero() && doc.ModTime.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && !doc.ModTime.Before(c.Until) {
		return false
	}
	if len(c.Categories) > 0 {
		found := false
		for _, cat := range c.Categories {
			if doc.Category == cat {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchedTerms returns the query terms present in the chunk text or the
// document path, in query order.
func matchedTerms(queryTerms []string, chunkText, path string) []string {
	haystack := make(map[string]bool)
	for _, tok := range embedder.Tokenize(chunkText) {
		haystack[tok] = true
	}
	for _, tok := range embedder.Tokenize(path) {
		haystack[tok] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, term := range queryTerms {
		if haystack[term] && !seen[term] {
			seen[term] = true
			matched = append(matched, term)
		}
	}
	return matched
}

// lexicalBonus is the fraction of informative query terms with exact matches.
func lexicalBonus(queryTerms, matched []string) float64 {
	informative := 0
	for _, term := range queryTerms {
		if !embedder.IsStopword(term) {
			informative++
		}
	}
	if informative == 0 {
		return 0
	}
	bonus := float64(len(matched)) / float64(informative)
	return math.Min(1, bonus)
}

// feedbackTerms mines the best candidate chunks for frequent informative
// terms the query does not already contain.
func (s *Searcher) feedbackTerms(candidates []storage.VectorResult, qc *types.QueryContext) []string {
	if len(candidates) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, t := range qc.Terms {
		present[t] = true
	}
	for _, t := range qc.ExpandedTerms {
		present[t] = true
	}

	counts := make(map[string]int)
	top := candidates
	if len(top) > feedbackChunks {
		top = top[:feedbackChunks]
	}
	for _, c := range top {
		if embedder.NormalizeScore(c.Similarity) < s.cfg.MinSimilarity {
			continue
		}
		seen := make(map[string]bool)
		for _, tok := range embedder.Tokenize(c.Content) {
			if present[tok] || embedder.IsStopword(tok) || len(tok) < 3 || seen[tok] {
				continue
			}
			seen[tok] = true
			counts[tok]++
		}
	}

	// A term must recur across chunks to count as a neighborhood signal
	var terms []string
	for tok, n := range counts {
		if n >= 2 {
			terms = append(terms, tok)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > feedbackTerms {
		terms = terms[:feedbackTerms]
	}
	return terms
}

// cacheKey folds everything that shapes the result list into one hash.
func (s *Searcher) cacheKey(qc *types.QueryContext) [32]byte {
	var b strings.Builder
	b.WriteString(qc.Normalized)
	b.WriteByte('\n')
	b.WriteString(strings.Join(qc.ExpandedTerms, " "))
	b.WriteByte('\n')
	b.WriteString(string(qc.Intent))
	b.WriteByte('\n')
	if !qc.Constraints.Since.IsZero() {
		b.WriteString(qc.Constraints.Since.UTC().Format(time.RFC3339))
	}
	b.WriteByte('\n')
	if !qc.Constraints.Until.IsZero() {
		b.WriteString(qc.Constraints.Until.UTC().Format(time.RFC3339))
	}
	b.WriteByte('\n')
	b.WriteString(strings.Join(qc.Constraints.Categories, ","))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%d", qc.MaxResults)
	return sha256.Sum256([]byte(b.String()))
}

func copyResults(results []types.Result) []types.Result {
	out := make([]types.Result, len(results))
	copy(out, results)
	return out
}
