package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/localseek/localseek/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery           = -32001 // Query parameter is empty
	ErrorCodeEmbeddingUnavailable = -32002 // Embedding provider is unreachable
)

// handleIndexFiles handles the index_files tool invocation
func (s *Server) handleIndexFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	rebuild := getBoolDefault(args, "rebuild", false)

	var summary *types.ScanSummary
	var err error
	if rebuild {
		summary, err = s.indexer.Rebuild(ctx)
	} else {
		summary, err = s.indexer.Scan(ctx)
	}
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			return nil, newMCPError(ErrorCodeEmbeddingUnavailable, "embedding provider unavailable, scan halted", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "scan failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Indexed content changed; cached query results may be stale.
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"scanned":     true,
		"rebuilt":     rebuild,
		"total_files": summary.TotalListed,
		"indexed":     summary.Indexed,
		"unchanged":   summary.Unchanged,
		"removed":     summary.Removed,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
	}
	if len(summary.Errors) > 0 {
		if len(summary.Errors) > 5 {
			response["errors"] = summary.Errors[:5]
			response["error_count"] = len(summary.Errors)
		} else {
			response["errors"] = summary.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFiles handles the search_files tool invocation
func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, _ := args["query"].(string)
	qc, err := s.analyzer.Analyze(raw)
	if err != nil {
		if errors.Is(err, types.ErrEmptyQuery) {
			return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
				"param":  "query",
				"reason": "missing or empty",
			})
		}
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid query", map[string]interface{}{
			"error": err.Error(),
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	if limit > 0 {
		qc.MaxResults = limit
	}

	results, err := s.searcher.Search(ctx, qc)
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			return nil, newMCPError(ErrorCodeEmbeddingUnavailable, "embedding provider unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"query":   qc.Normalized,
		"intent":  string(qc.Intent),
		"count":   len(results),
		"results": formatResults(results),
	}
	if len(qc.ExpandedTerms) > 0 {
		response["expanded_terms"] = qc.ExpandedTerms
	}
	if len(qc.Degraded) > 0 {
		response["degraded_constraints"] = qc.Degraded
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.indexer.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"total_documents":  status.TotalDocuments,
		"total_chunks":     status.TotalChunks,
		"total_size_bytes": status.TotalSizeBytes,
		"categories":       status.Categories,
		"provider":         status.ProviderVersion,
	}
	if !status.LastScanTime.IsZero() {
		response["last_scan_time"] = status.LastScanTime.Format(time.RFC3339)
		response["last_scan_duration_ms"] = status.LastScanDuration.Milliseconds()
	}
	if len(status.FailedPaths) > 0 {
		response["failed_paths"] = status.FailedPaths
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// formatResults renders ranked results for the tool response.
func formatResults(results []types.Result) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"path":        r.Path,
			"score":       round3(r.Score),
			"similarity":  round3(r.Similarity),
			"category":    r.Category,
			"preview":     r.Preview,
			"mod_time":    r.ModTime.Format(time.RFC3339),
			"explanation": r.Explanation,
		}
		if len(r.MatchedTerms) > 0 {
			entry["matched_terms"] = r.MatchedTerms
		}
		out = append(out, entry)
	}
	return out
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
