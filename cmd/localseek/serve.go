package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/localseek/localseek/internal/scanner"
	"github.com/localseek/localseek/internal/storage"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server communicates over stdio using JSON-RPC. Startup messages go to
stderr; stdout is reserved for the protocol.

Example client configuration:
  {
    "mcpServers": {
      "localseek": {
        "command": "/path/to/localseek",
        "args": ["serve"]
      }
    }
  }`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "watch configured folders and rescan on changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Stdout is the protocol channel.
	log.SetOutput(os.Stderr)
	log.Printf("localseek v%s starting (driver: %s, build: %s)", version, storage.DriverName, storage.BuildMode)

	srv, cfg, zlog, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveWatch {
		sc := scanner.New(scanner.Options{
			ExcludeDirs: cfg.Scan.ExcludeDirs,
			MaxFileSize: int64(cfg.Scan.MaxFileSizeMB) * 1024 * 1024,
		})
		debounce := time.Duration(cfg.Scan.WatchDebounceMS) * time.Millisecond
		w := scanner.NewWatcher(sc, cfg.Scan.Roots, debounce, zlog)
		go func() {
			err := w.Run(ctx, func() {
				if _, err := srv.Indexer().Scan(ctx); err != nil {
					zlog.Warn("watch-triggered scan failed", zap.Error(err))
					return
				}
				srv.Searcher().InvalidateCache()
			})
			if err != nil && ctx.Err() == nil {
				zlog.Warn("watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errCh <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down...")
		return nil
	case err := <-errCh:
		return err
	}
}
