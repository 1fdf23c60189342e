package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

const float32Size = 4

// serializeVector encodes a float32 vector as little-endian bytes
func serializeVector(vector []float32) ([]byte, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("cannot serialize empty vector")
	}
	buf := make([]byte, len(vector)*float32Size)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*float32Size:], math.Float32bits(v))
	}
	return buf, nil
}

// deserializeVector decodes little-endian bytes into a float32 vector
func deserializeVector(data []byte, dimension int) ([]float32, error) {
	if len(data) != dimension*float32Size {
		return nil, fmt.Errorf("vector blob is %d bytes, expected %d for dimension %d",
			len(data), dimension*float32Size, dimension)
	}
	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*float32Size:]))
	}
	return vector, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched dimensions or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
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

// SearchVector scans all stored embeddings and returns the limit most similar
// chunks by cosine similarity. Embeddings whose dimension does not match the
// query vector are skipped. Ties break on ascending chunk ID so repeated
// searches over an unchanged index return identical orderings.
func (s *SQLiteStorage) SearchVector(ctx context.Context, queryVector []float32, limit int) ([]VectorResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.chunk_id, c.document_id, c.content, e.vector, e.dimension
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []VectorResult
	for rows.Next() {
		var chunkID int64
		var documentID, content string
		var blob []byte
		var dimension int
		if err := rows.Scan(&chunkID, &documentID, &content, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		if dimension != len(queryVector) {
			continue
		}
		vector, err := deserializeVector(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunkID, err)
		}
		results = append(results, VectorResult{
			ChunkID:    chunkID,
			DocumentID: documentID,
			Content:    content,
			Similarity: cosineSimilarity(queryVector, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
