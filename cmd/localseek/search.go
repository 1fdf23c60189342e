package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed files",
	Long: `Searches the index with a natural language query. Queries may carry
date hints ("meeting notes from last week", "reports since 2023") and
file-type hints ("excel files about budget"); both narrow the results.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = config default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	srv, _, zlog, err := newApp()
	if err != nil {
		return err
	}
	defer srv.Close()
	defer func() { _ = zlog.Sync() }()

	qc, err := srv.Analyzer().Analyze(args[0])
	if err != nil {
		return err
	}
	if searchLimit > 0 {
		qc.MaxResults = searchLimit
	}

	results, err := srv.Searcher().Search(context.Background(), qc)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, phrase := range qc.Degraded {
		cmd.Printf("note: could not parse %q, showing unfiltered results\n", phrase)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("%2d. %s  (score %.2f)\n", i+1, r.Path, r.Score)
		cmd.Printf("    %s\n", r.Explanation)
		if r.Preview != "" {
			cmd.Printf("    %s\n", r.Preview)
		}
		cmd.Println()
	}
	return nil
}
