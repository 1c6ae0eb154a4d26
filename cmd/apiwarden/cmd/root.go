// Package cmd provides the CLI commands for apiwarden.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "apiwarden",
	Short: "apiwarden - live HTTP contract validation proxy",
	Long: `apiwarden validates live HTTP traffic against an OpenAPI-style contract.

It sits in front of an upstream service as a reverse proxy, checks every
request and response against the contract, and reports violations as
structured findings. By default it only observes; hard mode rejects
non-conforming requests before they reach the upstream.

Quick start:
  1. Create a config file: apiwarden.yaml
  2. Run: apiwarden serve

Configuration:
  Config is loaded from apiwarden.yaml in the current directory, or the
  file given with --config. Environment variables override config values
  with the APIWARDEN_ prefix.
  Example: APIWARDEN_VALIDATION_STRICT=true

Commands:
  serve       Start the validating reverse proxy
  check       Validate one recorded request or response against a contract
  lint        Load a contract and report its structural problems
  mcp         Run the MCP stdio server
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./apiwarden.yaml)")
}
