package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexFilesTool returns the tool definition for index_files
func indexFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_files",
		Description: "Scan the configured folders and bring the search index up to date",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"rebuild": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, discard the index and re-embed every file from scratch",
					"default":     false,
				},
			},
		},
	}
}

// searchFilesTool returns the tool definition for search_files
func searchFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_files",
		Description: "Search indexed files with a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords, may include date or file-type hints)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report index statistics, last scan time, and files that failed to index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
