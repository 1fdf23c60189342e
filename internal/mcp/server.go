package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/localseek/localseek/internal/chunker"
	"github.com/localseek/localseek/internal/config"
	"github.com/localseek/localseek/internal/embedder"
	"github.com/localseek/localseek/internal/extract"
	"github.com/localseek/localseek/internal/indexer"
	"github.com/localseek/localseek/internal/query"
	"github.com/localseek/localseek/internal/scanner"
	"github.com/localseek/localseek/internal/searcher"
	"github.com/localseek/localseek/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "localseek"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	// DatabaseFile is the index database name inside the data directory.
	DatabaseFile = "index.db"
	// VocabularyFile is the lexical vocabulary name inside the data directory.
	VocabularyFile = "vocabulary.json"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	log      *zap.Logger
	storage  storage.Storage
	embedder embedder.Embedder
	indexer  *indexer.Indexer
	analyzer *query.Analyzer
	searcher *searcher.Searcher
}

// NewServer creates a new MCP server instance wired from the application
// configuration. The embedding provider is constructed once and shared by
// the indexer and the searcher so that documents and queries are always
// embedded in the same vector space.
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(cfg.DataDir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if store.Recreated() {
		log.Warn("index database was corrupt and has been recreated")
	}

	vocabPath := filepath.Join(cfg.DataDir, VocabularyFile)
	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		APIKey:    os.Getenv(cfg.Embedding.APIKeyEnv),
		Dimension: cfg.Embedding.Dimension,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		CacheSize: cfg.Embedding.CacheSize,
		VocabPath: vocabPath,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	lister := scanner.New(scanner.Options{
		ExcludeDirs: cfg.Scan.ExcludeDirs,
		MaxFileSize: int64(cfg.Scan.MaxFileSizeMB) * 1024 * 1024,
	})

	idx := indexer.New(indexer.Options{
		Store:     store,
		Lister:    lister,
		Extractor: extract.NewTextExtractor(int64(cfg.Scan.MaxFileSizeMB) * 1024 * 1024),
		Chunker:   chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap),
		Embedder:  emb,
		Roots:     cfg.Scan.Roots,
		Workers:   cfg.Scan.Workers,
		VocabPath: vocabPath,
		Logger:    log,
	})

	srch := searcher.NewSearcher(store, emb, searcher.Config{
		TopK:                cfg.Search.TopK,
		MaxResults:          cfg.Search.MaxResults,
		MinSimilarity:       cfg.Search.MinSimilarity,
		RecencyHalfLifeDays: cfg.Search.RecencyHalfLifeDays,
		SemanticWeight:      cfg.Search.Weights.Semantic,
		RecencyWeight:       cfg.Search.Weights.Recency,
		LexicalWeight:       cfg.Search.Weights.Lexical,
	}, log)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		log:      log,
		storage:  store,
		embedder: emb,
		indexer:  idx,
		analyzer: query.New(cfg.Search.MaxResults),
		searcher: srch,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Close releases the server's storage and embedder resources.
func (s *Server) Close() {
	_ = s.embedder.Close()
	_ = s.storage.Close()
}

// Indexer returns the wired incremental indexer. The CLI commands drive the
// same component graph as the MCP tools.
func (s *Server) Indexer() *indexer.Indexer { return s.indexer }

// Analyzer returns the wired query analyzer.
func (s *Server) Analyzer() *query.Analyzer { return s.analyzer }

// Searcher returns the wired searcher.
func (s *Server) Searcher() *searcher.Searcher { return s.searcher }

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexFilesTool(), s.handleIndexFiles)
	s.mcp.AddTool(searchFilesTool(), s.handleSearchFiles)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}
