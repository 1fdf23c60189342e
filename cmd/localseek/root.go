package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/localseek/localseek/internal/config"
	"github.com/localseek/localseek/internal/logger"
	"github.com/localseek/localseek/internal/mcp"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "localseek",
	Short: "Local semantic file search",
	Long: `LocalSeek indexes the files in your configured folders and answers
natural language queries about them. All indexing and retrieval happens on
this machine; file content never leaves it unless you configure a remote
embedding provider.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.localseek/config.yaml)")
}

// newApp loads configuration and wires the full component graph. Every
// subcommand drives the same graph the MCP server exposes.
func newApp() (*mcp.Server, *config.Config, *zap.Logger, error) {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".localseek", "config.yaml")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	srv, err := mcp.NewServer(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return srv, cfg, log, nil
}
