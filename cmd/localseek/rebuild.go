package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localseek/localseek/pkg/types"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Discard the index and re-embed every file",
	Long: `Drops all indexed documents and runs a full scan from scratch. Use
this after switching embedding providers or when the index looks wrong.
Depending on corpus size and provider this can take a while.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	srv, _, zlog, err := newApp()
	if err != nil {
		return err
	}
	defer srv.Close()
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := srv.Indexer().Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	srv.Searcher().InvalidateCache()
	printSummary(cmd, summary)
	return nil
}

// printSummary renders a scan summary for the terminal.
func printSummary(cmd *cobra.Command, s *types.ScanSummary) {
	cmd.Printf("scanned %d files in %s: %d indexed, %d unchanged, %d removed, %d failed\n",
		s.TotalListed, s.Duration.Round(time.Millisecond), s.Indexed, s.Unchanged, s.Removed, s.Failed)
	for _, e := range s.Errors {
		cmd.Printf("  error: %s\n", e)
	}
}
