package storage

import (
	"context"
	"time"

	"github.com/localseek/localseek/pkg/types"
)

// Meta keys persisted in the index_meta table.
const (
	MetaProviderVersion    = "provider_version"
	MetaLastScanTime       = "last_scan_time"
	MetaLastScanDurationMS = "last_scan_duration_ms"
)

// Storage defines the interface for persisting and querying the file index.
// Documents double as the fingerprint store: the size, mod time, and content
// hash recorded per document drive change detection between scans.
type Storage interface {
	// Document operations
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	GetDocumentByPath(ctx context.Context, path string) (*types.Document, error)
	ListDocuments(ctx context.Context) ([]*types.Document, error)
	ListFingerprints(ctx context.Context) ([]types.Fingerprint, error)
	DeleteDocument(ctx context.Context, id string) error

	// TouchFingerprint refreshes the size and mod time of an existing
	// document whose content hash turned out to be unchanged.
	TouchFingerprint(ctx context.Context, path string, sizeBytes int64, modTime time.Time) error

	// ReplaceDocumentChunks atomically upserts a document together with its
	// chunks and their vectors. Readers observe either the previous committed
	// chunk set or the new one, never a mix.
	ReplaceDocumentChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk, vectors [][]float32) error

	// Chunk operations
	GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]types.Chunk, error)

	// Vector search
	SearchVector(ctx context.Context, queryVector []float32, limit int) ([]VectorResult, error)

	// Failed path tracking
	UpsertFailedPath(ctx context.Context, path, reason string) error
	DeleteFailedPath(ctx context.Context, path string) error
	ListFailedPaths(ctx context.Context) (map[string]string, error)

	// Meta operations
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	// Stats aggregates index-wide counters
	Stats(ctx context.Context) (*Stats, error)

	// Reset drops all indexed data but keeps the schema
	Reset(ctx context.Context) error

	Close() error
}

// VectorResult is a single row from a vector similarity scan. Similarity is
// the raw cosine value in [-1, 1]; score normalization happens in ranking.
type VectorResult struct {
	ChunkID    int64
	DocumentID string
	Content    string
	Similarity float64
}

// Stats holds index-wide aggregates for status reporting.
type Stats struct {
	TotalDocuments int64
	TotalChunks    int64
	TotalSizeBytes int64
	Categories     map[string]int
}
