package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	srv, _, zlog, err := newApp()
	if err != nil {
		return err
	}
	defer srv.Close()
	defer func() { _ = zlog.Sync() }()

	status, err := srv.Indexer().Status(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents: %d\n", status.TotalDocuments)
	cmd.Printf("Chunks:    %d\n", status.TotalChunks)
	cmd.Printf("Size:      %.1f MB\n", float64(status.TotalSizeBytes)/(1024*1024))
	cmd.Printf("Provider:  %s\n", status.ProviderVersion)
	if !status.LastScanTime.IsZero() {
		cmd.Printf("Last scan: %s (%s)\n",
			status.LastScanTime.Format(time.RFC3339), status.LastScanDuration.Round(time.Millisecond))
	} else {
		cmd.Println("Last scan: never")
	}

	if len(status.Categories) > 0 {
		cmd.Println("\nBy category:")
		cats := make([]string, 0, len(status.Categories))
		for c := range status.Categories {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			cmd.Printf("  %-12s %d\n", c, status.Categories[c])
		}
	}

	if len(status.FailedPaths) > 0 {
		cmd.Printf("\nFailed paths (%d):\n", len(status.FailedPaths))
		for _, p := range status.FailedPaths {
			cmd.Printf("  %s\n", p)
		}
	}
	return nil
}
