// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"retsync/cli/internal/logging"
	"retsync/cli/internal/rets"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	searchSelect  string
	searchLimit   int
	searchOffset  int
	searchFormat  string
	searchMaxRows int
)

// searchCmd represents the search command for running DMQL2 queries.
// Results are decoded into typed values and displayed as a table. Rate
// limiting by the server is retried automatically with backoff.
var searchCmd = &cobra.Command{
	Use:   "search <resource> <class> <query>",
	Short: "Run a DMQL2 search and display the records",
	Long: `The search command runs a DMQL2 query against a resource class and displays
the decoded records. Use --select to restrict the returned fields and
--limit/--offset to page through large result sets.

Example:
  retsync search Property RES "(ListPrice=200000+)" --select ListPrice,City --limit 50`,
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

		req := rets.SearchRequest{
			Resource: args[0],
			Class:    args[1],
			Query:    args[2],
			Format:   searchFormat,
			Limit:    searchLimit,
			Offset:   searchOffset,
		}
		if searchSelect != "" {
			req.Select = strings.Split(searchSelect, ",")
		}

		resp, err := sess.GetData(ctx, req)
		if err != nil {
			pterm.Error.Println(logging.PresentError("running search", err))
			return err
		}
		if !resp.Ok {
			pterm.Error.Printf("Server replied %s: %s\n", resp.ReplyCode, resp.ReplyText)
			return nil
		}

		renderRows(resp.Rows, searchMaxRows)
		if resp.MoreRows {
			pterm.Info.Printf("More records available; rerun with --offset %d\n",
				nextOffset(searchOffset, len(resp.Rows)))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchSelect, "select", "", "Comma-separated fields to return")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum records to request (0 uses the server default)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "1-based record offset for paging (0 uses the server default)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "", "Wire format override (default COMPACT-DECODED)")
	searchCmd.Flags().IntVar(&searchMaxRows, "max-rows", 25, "Limit displayed rows (0 shows all)")
	rootCmd.AddCommand(searchCmd)
}
