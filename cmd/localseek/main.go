package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for the embedding API key; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
