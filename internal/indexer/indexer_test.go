package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localseek/localseek/internal/chunker"
	"github.com/localseek/localseek/internal/embedder"
	"github.com/localseek/localseek/internal/extract"
	"github.com/localseek/localseek/internal/scanner"
	"github.com/localseek/localseek/internal/storage"
	"github.com/localseek/localseek/pkg/types"
)

// stubEmbedder produces a fixed-dimension vector from character counts and
// fails on demand.
type stubEmbedder struct {
	version string
	fail    error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r % 13)
	}
	return vec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int   { return 4 }
func (s *stubEmbedder) Provider() string { return "stub" }
func (s *stubEmbedder) Model() string    { return "stub" }
func (s *stubEmbedder) Version() string {
	if s.version != "" {
		return s.version
	}
	return "stub/1"
}
func (s *stubEmbedder) Close() error { return nil }

type testEnv struct {
	root  string
	store *storage.SQLiteStorage
	idx   *Indexer
}

func newTestEnv(t *testing.T, emb embedder.Embedder) *testEnv {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if emb == nil {
		emb = &stubEmbedder{}
	}
	idx := New(Options{
		Store:     store,
		Lister:    scanner.New(scanner.Options{}),
		Extractor: extract.NewTextExtractor(0),
		Chunker:   chunker.New(0, 0),
		Embedder:  emb,
		Roots:     []string{root},
		Workers:   2,
	})
	return &testEnv{root: root, store: store, idx: idx}
}

func (e *testEnv) writeFile(t *testing.T, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(e.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

var baseTime = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func TestScanIndexesNewFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeFile(t, "notes.txt", "meeting notes about the budget review", baseTime)
	env.writeFile(t, "sub/recipe.md", "pasta recipe with tomato sauce", baseTime)

	summary, err := env.idx.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalListed)
	assert.Equal(t, 2, summary.Indexed)
	assert.Zero(t, summary.Unchanged)
	assert.Zero(t, summary.Failed)

	status, err := env.idx.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalDocuments)
	assert.Positive(t, status.TotalChunks)
	assert.False(t, status.LastScanTime.IsZero())
}

func TestScanIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeFile(t, "a.txt", "alpha content", baseTime)
	env.writeFile(t, "b.txt", "beta content", baseTime)

	_, err := env.idx.Scan(context.Background())
	require.NoError(t, err)

	summary, err := env.idx.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Indexed)
	assert.Equal(t, 2, summary.Unchanged)
	assert.Zero(t, summary.Removed)
}

func TestScanReindexesModifiedFile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	path := env.writeFile(t, "plan.txt", "original project plan", baseTime)

	_, err := env.idx.Scan(ctx)
	require.NoError(t, err)

	env.writeFile(t, "plan.txt", "revised project plan with new milestones", baseTime.Add(time.Hour))

	summary, err := env.idx.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed)

	doc, err := env.store.GetDocumentByPath(ctx, path)
	require.NoError(t, err)
	chunks, err := env.store.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "revised")
	assert.NotContains(t, chunks[0].Content, "original")
}

func TestScanTouchesMetadataOnlyChange(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	path := env.writeFile(t, "stable.txt", "unchanging content", baseTime)

	_, err := env.idx.Scan(ctx)
	require.NoError(t, err)

	// Same bytes, newer mod time
	require.NoError(t, os.Chtimes(path, baseTime.Add(time.Hour), baseTime.Add(time.Hour)))

	summary, err := env.idx.Scan(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Indexed)
	assert.Equal(t, 1, summary.Unchanged)

	// The refreshed fingerprint makes the next scan skip the hash check
	summary, err = env.idx.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
}

func TestScanRemovesDeletedFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	keep := env.writeFile(t, "keep.txt", "kept document", baseTime)
	gone := env.writeFile(t, "gone.txt", "doomed document", baseTime)

	_, err := env.idx.Scan(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))

	summary, err := env.idx.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed)

	_, err = env.store.GetDocumentByPath(ctx, gone)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.store.GetDocumentByPath(ctx, keep)
	assert.NoError(t, err)
}

func TestScanRecordsFailedPaths(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.writeFile(t, "good.txt", "readable text", baseTime)
	bad := env.writeFile(t, "bad.txt", "binary\x00payload", baseTime)

	summary, err := env.idx.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "bad.txt")

	status, err := env.idx.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{bad}, status.FailedPaths)

	// Fixing the file clears it on the next scan
	env.writeFile(t, "bad.txt", "now valid text", baseTime.Add(time.Hour))
	_, err = env.idx.Scan(ctx)
	require.NoError(t, err)

	status, err = env.idx.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.FailedPaths)
}

func TestScanHaltsWhenEmbeddingUnavailable(t *testing.T) {
	emb := &stubEmbedder{fail: fmt.Errorf("%w: connection refused", types.ErrEmbeddingUnavailable)}
	env := newTestEnv(t, emb)
	env.writeFile(t, "a.txt", "some content", baseTime)

	_, err := env.idx.Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)

	// Nothing was committed for the failed file
	docs, err := env.store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestProviderChangeResetsIndex(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{version: "stub/v1"})
	ctx := context.Background()
	env.writeFile(t, "a.txt", "alpha", baseTime)

	_, err := env.idx.Scan(ctx)
	require.NoError(t, err)

	// Same store, different provider version
	idx2 := New(Options{
		Store:     env.store,
		Lister:    scanner.New(scanner.Options{}),
		Extractor: extract.NewTextExtractor(0),
		Chunker:   chunker.New(0, 0),
		Embedder:  &stubEmbedder{version: "stub/v2"},
		Roots:     []string{env.root},
	})
	summary, err := idx2.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed, "all documents re-index after a provider change")

	version, err := env.store.GetMeta(ctx, storage.MetaProviderVersion)
	require.NoError(t, err)
	assert.Equal(t, "stub/v2", version)
}

func TestRebuild(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.writeFile(t, "a.txt", "alpha notes", baseTime)
	env.writeFile(t, "b.txt", "beta notes", baseTime)

	_, err := env.idx.Scan(ctx)
	require.NoError(t, err)

	summary, err := env.idx.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Indexed)

	status, err := env.idx.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalDocuments)
}

func TestLexicalProviderFitsOnFirstScan(t *testing.T) {
	lex := embedder.NewLexicalProvider()
	env := newTestEnv(t, lex)
	env.writeFile(t, "budget.txt", "quarterly budget with revenue and expenses", baseTime)
	env.writeFile(t, "recipe.txt", "pasta recipe with tomato and basil", baseTime)

	summary, err := env.idx.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Indexed)
	assert.True(t, lex.Fitted())
	assert.Positive(t, lex.Dimension())

	// Fitting happened before indexing, so stored vectors match the
	// fitted vocabulary and a repeat scan is a no-op.
	summary, err = env.idx.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Indexed)
	assert.Equal(t, 2, summary.Unchanged)
}

func TestConcurrentScansCoalesce(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 20; i++ {
		env.writeFile(t, fmt.Sprintf("f%02d.txt", i), fmt.Sprintf("document number %d", i), baseTime)
	}

	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := env.idx.Scan(context.Background())
			results <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-results)
	}

	status, err := env.idx.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, status.TotalDocuments)
}

func TestScanCancellation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeFile(t, "a.txt", "content", baseTime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.idx.Scan(ctx)
	assert.True(t, errors.Is(err, context.Canceled) || err == nil)
}
