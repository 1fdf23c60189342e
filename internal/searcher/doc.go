// Package searcher executes analyzed queries against the vector index.
//
// Retrieval fetches the top-K nearest chunks, groups them by document with
// each document represented by its best chunk, applies the query's
// constraints as a post-filter, and re-ranks survivors by a weighted blend
// of semantic similarity, recency decay, and exact-term overlap. Candidates
// below the minimum similarity floor are dropped entirely, so a query with
// no good match returns an empty list rather than noise.
//
// Results for one query over an unchanged index are deterministic: ties
// break by modification time, then path. A small LRU cache short-circuits
// repeated queries and is purged whenever a scan changes the index.
package searcher
