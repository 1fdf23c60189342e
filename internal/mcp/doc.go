// Package mcp exposes the search engine over the Model Context Protocol.
//
// The server registers three tools on a stdio transport:
//
//   - index_files: runs one incremental scan cycle, or a full rebuild when
//     rebuild is true, and reports the scan summary.
//   - search_files: analyzes a natural language query, runs retrieval and
//     ranking, and returns scored results with per-result explanations.
//     Constraint phrases that could not be parsed are reported in
//     degraded_constraints rather than failing the call.
//   - index_status: reports document and chunk counts, category breakdown,
//     last scan time, and any paths that failed extraction.
//
// NewServer wires the full dependency graph from the application
// configuration: a single SQLite store, one shared embedding provider, the
// incremental indexer, the query analyzer, and the searcher. Sharing the
// provider guarantees documents and queries live in the same vector space.
// Successful scans invalidate the searcher's query cache.
package mcp
