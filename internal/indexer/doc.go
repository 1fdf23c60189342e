// Package indexer coordinates the end-to-end indexing pipeline.
//
// A scan cycle lists the current files under the configured roots, diffs
// them against stored fingerprints, and brings the index up to date:
//
//  1. Listing: walk roots, apply exclusion filters
//  2. Diff: new paths are added, vanished paths removed, and paths whose
//     size or mod time moved are re-hashed to confirm a content change
//  3. Extract, chunk, embed, store: changed files run through a bounded
//     worker pool, one transaction per document
//
// Running the same scan twice over an unchanged tree is a no-op. Files that
// fail extraction are recorded and skipped without aborting the cycle; an
// unavailable embedding provider aborts it, since no file could proceed.
//
// Concurrent Scan calls coalesce onto a single in-flight cycle via
// singleflight, and a per-path lock map serializes workers that would
// otherwise touch the same document.
package indexer
