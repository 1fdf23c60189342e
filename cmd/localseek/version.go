package main

import (
	"github.com/spf13/cobra"

	"github.com/localseek/localseek/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("localseek version %s\n", version)
		cmd.Printf("  build time:    %s\n", buildTime)
		cmd.Printf("  build mode:    %s\n", storage.BuildMode)
		cmd.Printf("  sqlite driver: %s\n", storage.DriverName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
