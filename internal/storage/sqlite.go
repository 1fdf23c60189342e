package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/localseek/localseek/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db        *sql.DB
	path      string
	recreated bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// open opens and verifies a database, applying pending migrations.
func open(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		if isCorruptionError(err) {
			return nil, fmt.Errorf("%v: %w", err, types.ErrIndexCorrupt)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var check string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&check); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check: %w", types.ErrIndexCorrupt)
	}
	if check != "ok" {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check reported %q: %w", check, types.ErrIndexCorrupt)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		if isCorruptionError(err) {
			return nil, fmt.Errorf("%v: %w", err, types.ErrIndexCorrupt)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// NewSQLiteStorage creates a new SQLite storage instance. A corrupt on-disk
// database is discarded and replaced with an empty one; callers can check
// Recreated to schedule a full rebuild.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	s, err := open(dbPath)
	if err == nil {
		return s, nil
	}
	if dbPath == ":memory:" || !errors.Is(err, types.ErrIndexCorrupt) {
		return nil, err
	}

	removeDatabaseFiles(dbPath)
	s, err = open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to recreate database after corruption: %w", err)
	}
	s.recreated = true
	return s, nil
}

// Recreated reports whether the database was rebuilt from scratch because the
// previous file was corrupt.
func (s *SQLiteStorage) Recreated() bool {
	return s.recreated
}

// isCorruptionError detects SQLite-level file corruption
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "not a database") ||
		strings.Contains(msg, "corrupt")
}

func removeDatabaseFiles(dbPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Document operations

const documentColumns = "id, path, content_hash, size_bytes, mod_time, category, preview, word_count, indexed_at"

func scanDocument(row *sql.Row) (*types.Document, error) {
	var doc types.Document
	var hash []byte
	var indexedAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.Path, &hash, &doc.SizeBytes, &doc.ModTime,
		&doc.Category, &doc.Preview, &doc.WordCount, &indexedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	copy(doc.ContentHash[:], hash)
	if indexedAt.Valid {
		doc.IndexedAt = indexedAt.Time
	}
	return &doc, nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE id = ?"
	return scanDocument(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) GetDocumentByPath(ctx context.Context, path string) (*types.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE path = ?"
	return scanDocument(s.db.QueryRowContext(ctx, query, path))
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents ORDER BY path"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*types.Document
	for rows.Next() {
		var doc types.Document
		var hash []byte
		var indexedAt sql.NullTime
		err := rows.Scan(&doc.ID, &doc.Path, &hash, &doc.SizeBytes, &doc.ModTime,
			&doc.Category, &doc.Preview, &doc.WordCount, &indexedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		copy(doc.ContentHash[:], hash)
		if indexedAt.Valid {
			doc.IndexedAt = indexedAt.Time
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListFingerprints(ctx context.Context) ([]types.Fingerprint, error) {
	query := "SELECT path, size_bytes, mod_time, content_hash FROM documents ORDER BY path"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fps []types.Fingerprint
	for rows.Next() {
		var fp types.Fingerprint
		var hash []byte
		if err := rows.Scan(&fp.Path, &fp.SizeBytes, &fp.ModTime, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		copy(fp.ContentHash[:], hash)
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

func (s *SQLiteStorage) TouchFingerprint(ctx context.Context, path string, sizeBytes int64, modTime time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET size_bytes = ?, mod_time = ?, updated_at = ? WHERE path = ?",
		sizeBytes, modTime, time.Now(), path)
	if err != nil {
		return fmt.Errorf("failed to touch fingerprint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	// Chunks and embeddings cascade
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ReplaceDocumentChunks upserts the document row and swaps its chunk set in a
// single transaction. len(vectors) must equal len(chunks).
func (s *SQLiteStorage) ReplaceDocumentChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	upsert := `
		INSERT INTO documents (id, path, content_hash, size_bytes, mod_time, category, preview, word_count, indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			category = excluded.category,
			preview = excluded.preview,
			word_count = excluded.word_count,
			indexed_at = excluded.indexed_at,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, upsert,
		doc.ID, doc.Path, doc.ContentHash[:], doc.SizeBytes, doc.ModTime,
		doc.Category, doc.Preview, doc.WordCount, now, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	doc.IndexedAt = now

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	for i := range chunks {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (document_id, seq, start_offset, content) VALUES (?, ?, ?, ?)",
			doc.ID, chunks[i].Seq, chunks[i].Offset, chunks[i].Content)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunks[i].Seq, err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		chunks[i].ID = chunkID
		chunks[i].DocumentID = doc.ID

		blob, err := serializeVector(vectors[i])
		if err != nil {
			return fmt.Errorf("failed to serialize vector for chunk %d: %w", chunks[i].Seq, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO embeddings (chunk_id, vector, dimension) VALUES (?, ?, ?)",
			chunkID, blob, len(vectors[i]))
		if err != nil {
			return fmt.Errorf("failed to insert embedding for chunk %d: %w", chunks[i].Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document replace: %w", err)
	}
	return nil
}

// Chunk operations

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error) {
	var chunk types.Chunk
	err := s.db.QueryRowContext(ctx,
		"SELECT id, document_id, seq, start_offset, content FROM chunks WHERE id = ?", chunkID).
		Scan(&chunk.ID, &chunk.DocumentID, &chunk.Seq, &chunk.Offset, &chunk.Content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, documentID string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document_id, seq, start_offset, content FROM chunks WHERE document_id = ? ORDER BY seq", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Seq, &chunk.Offset, &chunk.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Failed path tracking

func (s *SQLiteStorage) UpsertFailedPath(ctx context.Context, path, reason string) error {
	query := `
		INSERT INTO failed_paths (path, reason, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET reason = excluded.reason, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, path, reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record failed path: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteFailedPath(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM failed_paths WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to clear failed path: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListFailedPaths(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, reason FROM failed_paths ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to list failed paths: %w", err)
	}
	defer func() { _ = rows.Close() }()

	failed := make(map[string]string)
	for rows.Next() {
		var path, reason string
		if err := rows.Scan(&path, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan failed path: %w", err)
		}
		failed[path] = reason
	}
	return failed, rows.Err()
}

// Meta operations

func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO index_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

// Stats aggregates index-wide counters

func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Categories: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM documents").
		Scan(&stats.TotalDocuments, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM documents GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.Categories[category] = count
	}
	return stats, rows.Err()
}

// Reset drops all indexed data but keeps the schema and meta table intact
func (s *SQLiteStorage) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"documents", "failed_paths"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}
