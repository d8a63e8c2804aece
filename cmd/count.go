// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"retsync/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// countCmd represents the count command for counting matching records.
// It runs a count-only Search transaction, so the server skips row data and
// the answer comes back fast even for large result sets.
var countCmd = &cobra.Command{
	Use:   "count <resource> <class> <query>",
	Short: "Count the records matching a DMQL2 query",
	Long: `The count command asks the server how many records match a DMQL2 query
without transferring any record data.

Example:
  retsync count Property RES "(ListPrice=200000+)"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !requireConnected() {
			return nil
		}
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			pterm.Error.Println(logging.PresentError("opening session", err))
			return err
		}
		defer func() { _, _ = sess.Logout(ctx) }()

		count, err := sess.GetCount(ctx, args[0], args[1], args[2])
		if err != nil {
			pterm.Error.Println(logging.PresentError("counting records", err))
			return err
		}

		fmt.Printf("%d record(s) match\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
