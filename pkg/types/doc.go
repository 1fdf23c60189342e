// Package types provides shared type definitions for the localseek engine.
//
// This package defines the domain types used across the indexing and retrieval
// pipeline: documents, chunks, fingerprints, query contexts, and search results.
//
// # Core Types
//
// Document represents one indexed file together with its last-seen identity:
//
//	doc := &types.Document{
//	    ID:       types.DocumentID("/home/u/notes/budget.xlsx"),
//	    Path:     "/home/u/notes/budget.xlsx",
//	    Category: "spreadsheet",
//	}
//
// Chunk represents a bounded span of a document's extracted text, the unit
// that is embedded and indexed. Chunks are owned by their document and are
// replaced wholesale whenever the document is re-indexed.
//
// # Search Results
//
// Result combines document metadata with relevance scoring:
//
//	result := types.Result{
//	    DocumentID: doc.ID,
//	    Score:      0.82,
//	    Similarity: 0.74,
//	}
//
// Scores are normalized to [0, 1], higher values indicating better matches.
// Ordering over equal scores is deterministic: most recent modification time
// first, then lexically by path.
//
// # Error Taxonomy
//
// Per-file extraction failures are recoverable and carried as *ExtractionError
// values; provider-level failures wrap ErrEmbeddingUnavailable and abort the
// current scan cycle; ErrIndexCorrupt marks a store that must be rebuilt.
package types
