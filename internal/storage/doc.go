// Package storage persists documents, chunks, and embedding vectors in a
// single SQLite database. The documents table doubles as the fingerprint
// store used for change detection, and the embeddings table holds vectors as
// little-endian float32 blobs scanned in pure Go during similarity search.
//
// The database opens in WAL mode with a single writer connection. Chunk
// replacement for a document happens inside one transaction so readers only
// ever observe committed chunk sets.
package storage
