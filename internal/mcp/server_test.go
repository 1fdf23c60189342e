package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/localseek/localseek/internal/config"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	docs := t.TempDir()
	cfg := &config.Config{
		DataDir: t.TempDir(),
		Scan: config.ScanConfig{
			Roots:   []string{docs},
			Workers: 2,
		},
		Embedding: config.EmbeddingConfig{
			Provider: "lexical",
		},
		Chunking: config.ChunkingConfig{
			ChunkSize: 400,
			Overlap:   50,
		},
		Search: config.SearchConfig{
			TopK:                20,
			MaxResults:          10,
			MinSimilarity:       0.05,
			RecencyHalfLifeDays: 30,
			Weights:             config.Weights{Semantic: 0.6, Recency: 0.25, Lexical: 0.15},
		},
	}

	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, docs
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultJSON decodes the text payload of a tool result.
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool result should be text content")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewServerWiresComponents(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.NotNil(t, srv.storage)
	assert.NotNil(t, srv.embedder)
	assert.NotNil(t, srv.indexer)
	assert.NotNil(t, srv.analyzer)
	assert.NotNil(t, srv.searcher)
}

func TestIndexFilesToolReportsSummary(t *testing.T) {
	srv, docs := newTestServer(t)
	ctx := context.Background()

	writeDoc(t, docs, "budget.txt", "Quarterly budget with revenue and expense projections for the sales team.")
	writeDoc(t, docs, "recipe.txt", "Chocolate cake recipe with flour, sugar, and cocoa baked for thirty minutes.")

	result, err := srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["scanned"])
	assert.Equal(t, float64(2), payload["total_files"])
	assert.Equal(t, float64(2), payload["indexed"])
	assert.Equal(t, float64(0), payload["failed"])

	// A second scan over unchanged files indexes nothing.
	result, err = srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{}))
	require.NoError(t, err)
	payload = resultJSON(t, result)
	assert.Equal(t, float64(0), payload["indexed"])
	assert.Equal(t, float64(2), payload["unchanged"])
}

func TestSearchFilesToolReturnsRankedResults(t *testing.T) {
	srv, docs := newTestServer(t)
	ctx := context.Background()

	writeDoc(t, docs, "budget.txt", "Quarterly budget with revenue and expense projections for the sales team.")
	writeDoc(t, docs, "recipe.txt", "Chocolate cake recipe with flour, sugar, and cocoa baked for thirty minutes.")

	_, err := srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{}))
	require.NoError(t, err)

	result, err := srv.handleSearchFiles(ctx, callRequest("search_files", map[string]interface{}{
		"query": "budget revenue projections",
		"limit": float64(5),
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	results, ok := payload["results"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, results)

	top, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	path, _ := top["path"].(string)
	assert.Contains(t, path, "budget.txt")
	assert.NotEmpty(t, top["explanation"])
	assert.NotEmpty(t, top["preview"])
}

func TestSearchFilesToolRejectsEmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.handleSearchFiles(context.Background(), callRequest("search_files", map[string]interface{}{
		"query": "   ",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestSearchFilesToolReportsDegradedConstraints(t *testing.T) {
	srv, docs := newTestServer(t)
	ctx := context.Background()

	writeDoc(t, docs, "notes.txt", "Meeting notes about the project roadmap and release planning.")
	_, err := srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{}))
	require.NoError(t, err)

	result, err := srv.handleSearchFiles(ctx, callRequest("search_files", map[string]interface{}{
		"query": "project roadmap since whenever",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	degraded, ok := payload["degraded_constraints"].([]interface{})
	require.True(t, ok, "unparsable date phrase should be reported, not fatal")
	assert.NotEmpty(t, degraded)
}

func TestIndexStatusTool(t *testing.T) {
	srv, docs := newTestServer(t)
	ctx := context.Background()

	writeDoc(t, docs, "report.md", "Annual engineering report covering reliability and performance work.")
	_, err := srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{}))
	require.NoError(t, err)

	result, err := srv.handleIndexStatus(ctx, callRequest("index_status", nil))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, float64(1), payload["total_documents"])
	assert.NotEmpty(t, payload["last_scan_time"])
	assert.NotEmpty(t, payload["provider"])
}

func TestIndexFilesToolRebuild(t *testing.T) {
	srv, docs := newTestServer(t)
	ctx := context.Background()

	writeDoc(t, docs, "plan.txt", "Migration plan for the storage layer rollout next quarter.")
	_, err := srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{}))
	require.NoError(t, err)

	result, err := srv.handleIndexFiles(ctx, callRequest("index_files", map[string]interface{}{
		"rebuild": true,
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["rebuilt"])
	assert.Equal(t, float64(1), payload["indexed"], "rebuild re-embeds every file")
}
