package storage

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localseek/localseek/pkg/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocument(path, content string) *types.Document {
	return &types.Document{
		ID:          types.DocumentID(path),
		Path:        path,
		ContentHash: sha256.Sum256([]byte(content)),
		SizeBytes:   int64(len(content)),
		ModTime:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Category:    "text",
		Preview:     content,
		WordCount:   3,
	}
}

func testChunks(docID string, contents ...string) ([]types.Chunk, [][]float32) {
	chunks := make([]types.Chunk, len(contents))
	vectors := make([][]float32, len(contents))
	for i, c := range contents {
		chunks[i] = types.Chunk{DocumentID: docID, Seq: i, Offset: i * 10, Content: c}
		vectors[i] = []float32{float32(i) + 1, 0.5, 0.25}
	}
	return chunks, vectors
}

func TestReplaceDocumentChunksRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := testDocument("/notes/plan.txt", "quarterly revenue projections")
	chunks, vectors := testChunks(doc.ID, "quarterly revenue", "projections")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, doc, chunks, vectors))
	assert.False(t, doc.IndexedAt.IsZero())

	got, err := store.GetDocumentByPath(ctx, "/notes/plan.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, "text", got.Category)
	assert.Equal(t, int64(len("quarterly revenue projections")), got.SizeBytes)

	stored, err := store.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "quarterly revenue", stored[0].Content)
	assert.Equal(t, 1, stored[1].Seq)
}

func TestReplaceDocumentChunksSwapsChunkSet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := testDocument("/notes/plan.txt", "v1")
	chunks, vectors := testChunks(doc.ID, "first", "second", "third")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, doc, chunks, vectors))

	updated := testDocument("/notes/plan.txt", "v2 rewritten")
	chunks, vectors = testChunks(updated.ID, "rewritten")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, updated, chunks, vectors))

	stored, err := store.ListChunksByDocument(ctx, updated.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "rewritten", stored[0].Content)

	// The fingerprint reflects the latest content
	fps, err := store.ListFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, updated.ContentHash, fps[0].ContentHash)
}

func TestReplaceDocumentChunksVectorCountMismatch(t *testing.T) {
	store := newTestStorage(t)
	doc := testDocument("/a.txt", "content")
	chunks, _ := testChunks(doc.ID, "content")
	err := store.ReplaceDocumentChunks(context.Background(), doc, chunks, nil)
	assert.Error(t, err)
}

func TestDeleteDocumentCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := testDocument("/notes/old.txt", "obsolete")
	chunks, vectors := testChunks(doc.ID, "obsolete")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, doc, chunks, vectors))

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	_, err := store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := store.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	results, err := store.SearchVector(ctx, []float32{1, 0.5, 0.25}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetDocumentNotFound(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.GetDocumentByPath(context.Background(), "/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMetaRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetMeta(ctx, MetaProviderVersion)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetMeta(ctx, MetaProviderVersion, "lexical/tfidf/abc123/512"))
	require.NoError(t, store.SetMeta(ctx, MetaProviderVersion, "lexical/tfidf/def456/512"))

	value, err := store.GetMeta(ctx, MetaProviderVersion)
	require.NoError(t, err)
	assert.Equal(t, "lexical/tfidf/def456/512", value)
}

func TestFailedPaths(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertFailedPath(ctx, "/bad.pdf", "invalid encoding"))
	require.NoError(t, store.UpsertFailedPath(ctx, "/bad.pdf", "still invalid"))
	require.NoError(t, store.UpsertFailedPath(ctx, "/locked.txt", "permission denied"))

	failed, err := store.ListFailedPaths(ctx)
	require.NoError(t, err)
	assert.Len(t, failed, 2)
	assert.Equal(t, "still invalid", failed["/bad.pdf"])

	require.NoError(t, store.DeleteFailedPath(ctx, "/bad.pdf"))
	failed, err = store.ListFailedPaths(ctx)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestStats(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	docA := testDocument("/a.txt", "alpha beta")
	docA.Category = "text"
	chunks, vectors := testChunks(docA.ID, "alpha", "beta")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, docA, chunks, vectors))

	docB := testDocument("/b.md", "gamma")
	docB.Category = "document"
	chunks, vectors = testChunks(docB.ID, "gamma")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, docB, chunks, vectors))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDocuments)
	assert.Equal(t, int64(3), stats.TotalChunks)
	assert.Equal(t, docA.SizeBytes+docB.SizeBytes, stats.TotalSizeBytes)
	assert.Equal(t, 1, stats.Categories["text"])
	assert.Equal(t, 1, stats.Categories["document"])
}

func TestReset(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := testDocument("/a.txt", "alpha")
	chunks, vectors := testChunks(doc.ID, "alpha")
	require.NoError(t, store.ReplaceDocumentChunks(ctx, doc, chunks, vectors))
	require.NoError(t, store.UpsertFailedPath(ctx, "/bad.txt", "broken"))
	require.NoError(t, store.SetMeta(ctx, MetaProviderVersion, "neural/test/3"))

	require.NoError(t, store.Reset(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, stats.TotalChunks)

	failed, err := store.ListFailedPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)

	// Reset keeps meta so provider version survives a rebuild
	value, err := store.GetMeta(ctx, MetaProviderVersion)
	require.NoError(t, err)
	assert.Equal(t, "neural/test/3", value)
}

func TestCorruptDatabaseRecreated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("this is not a sqlite file at all, just opaque garbage bytes"), 0o644))

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.True(t, store.Recreated())

	// The recreated database is empty and usable
	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSchemaVersionRecorded(t *testing.T) {
	store := newTestStorage(t)
	var version string
	err := store.db.QueryRow("SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}
