package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile overrides the default config.yaml search paths
	configFile string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
)

// rootCmd runs the API server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "showtracker",
	Short: "showtracker is a small REST API to keep track of the shows you watch",
	Long: `showtracker stores shows and how many episodes of each you have seen.

Configuration is read from config.yaml in the working directory or ./config,
from APP_ prefixed environment variables, and from a .env file when present.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a config file (default: ./config.yaml or ./config/config.yaml)")
}
