package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/localseek/localseek/internal/scanner"
)

var scanWatch bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan configured folders and update the index",
	Long: `Runs one incremental scan cycle: new and modified files are indexed,
deleted files are removed, unchanged files are skipped. With --watch the
command keeps running and rescans whenever the folders change.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanWatch, "watch", false, "keep watching for changes after the initial scan")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	srv, cfg, zlog, err := newApp()
	if err != nil {
		return err
	}
	defer srv.Close()
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := srv.Indexer().Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	srv.Searcher().InvalidateCache()
	printSummary(cmd, summary)

	if !scanWatch {
		return nil
	}

	sc := scanner.New(scanner.Options{
		ExcludeDirs: cfg.Scan.ExcludeDirs,
		MaxFileSize: int64(cfg.Scan.MaxFileSizeMB) * 1024 * 1024,
	})
	debounce := time.Duration(cfg.Scan.WatchDebounceMS) * time.Millisecond
	w := scanner.NewWatcher(sc, cfg.Scan.Roots, debounce, zlog)

	cmd.Println("watching for changes, press Ctrl+C to stop")
	err = w.Run(ctx, func() {
		s, err := srv.Indexer().Scan(ctx)
		if err != nil {
			zlog.Warn("watch-triggered scan failed", zap.Error(err))
			return
		}
		srv.Searcher().InvalidateCache()
		if s.Indexed > 0 || s.Removed > 0 {
			printSummary(cmd, s)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
