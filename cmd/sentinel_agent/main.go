// Package main provides the entry point for the Risk Sentinel CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel_agent",
	Short: "Risk Sentinel content assessment service",
	Long:  "Risk Sentinel collects content from configured sources, scores it with a deterministic rule engine, selectively enriches borderline items through LLM oracles, and streams per-item risk assessments as they complete.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
