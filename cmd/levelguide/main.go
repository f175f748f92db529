// Package main provides the entry point for the Leveling Guide HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "levelguide",
	Short: "Leveling Guide Example Generator",
	Long:  "Leveling guide example generator: managers upload a leveling guide, the pipeline parses it into a levels-by-competencies grid and generates concrete behavioral examples for every cell, grounded in company context.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
