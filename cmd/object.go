// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"time"

	"retsync/cli/internal/logging"
	"retsync/cli/internal/rets"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	objectType    string
	objectOrderNo int
	objectOut     string
)

// objectCmd represents the object command for downloading binary objects.
// RETS serves listing photos and documents through the GetObject transaction;
// this command fetches one object and writes it to disk.
var objectCmd = &cobra.Command{
	Use:   "object <resource> <record-id>",
	Short: "Download a photo or document for a record",
	Long: `The object command downloads one binary object (photo, document) attached to
a record via the GetObject transaction and writes it to a file.

Example:
  retsync object Property 12345678 --type Photo --order 0 --out listing.jpg`,
	Args: cobra.ExactArgs(2),
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

		out := objectOut
		if out == "" {
			out = fmt.Sprintf("%s_%d.jpg", args[1], objectOrderNo)
		}

		stopSpinner := startInlineSpinner(os.Stdout, "downloading object",
			[]string{"-", "\\", "|", "/"}, 100*time.Millisecond)

		resp, err := sess.GetObject(ctx, rets.ObjectRequest{
			Resource:    args[0],
			Type:        objectType,
			ID:          args[1],
			OrderNo:     objectOrderNo,
			Path:        out,
			WriteToDisk: true,
		})
		stopSpinner()
		if err != nil {
			pterm.Error.Println(logging.PresentError("downloading object", err))
			return err
		}
		if !resp.Ok {
			pterm.Error.Printf("Server replied %s: %s\n", resp.ReplyCode, resp.ReplyText)
			return nil
		}

		pterm.Success.Printf("Saved %s\n", out)
		return nil
	},
}

func init() {
	objectCmd.Flags().StringVar(&objectType, "type", "Photo", "Object type to fetch")
	objectCmd.Flags().IntVar(&objectOrderNo, "order", 0, "Which of the record's objects to fetch")
	objectCmd.Flags().StringVar(&objectOut, "out", "", "Output file path (default <record-id>_<order>.jpg)")
	rootCmd.AddCommand(objectCmd)
}
