// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the retsync application.
// It implements subcommands for connecting to a RETS server, browsing its
// metadata, running searches, fetching objects, and syncing listing data into
// PostgreSQL, using the Cobra CLI framework. The package handles command
// parsing, execution, and provides a rich terminal UI with spinners and
// progress indicators.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
// It serves as the entry point for the retsync CLI application.
var rootCmd = &cobra.Command{
	Use:           "retsync",
	Short:         "RETS client for browsing MLS data and syncing it into PostgreSQL",
	Long:          `Retsync is a command-line RETS (Real Estate Transaction Standard) client. It logs into an MLS server, explores its metadata, runs DMQL2 searches, downloads listing photos, and syncs full record sets into a PostgreSQL database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("retsync %s\n", Version)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
