// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"retsync/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var metadataMaxRows int

// metadataCmd groups the metadata browsing subcommands. RETS metadata is a
// tree: resources contain classes, classes have a field table, and lookup
// fields enumerate their allowed values.
var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Browse the server's metadata tree",
	Long: `The metadata command explores the RETS server's metadata: the resources it
offers, the classes within a resource, the field table of a class, and the
allowed values of a lookup field.

Start with 'retsync metadata resources' and drill down from there.`,
}

// metadataResourcesCmd lists the resources the server offers.
var metadataResourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the server's resources",
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

		resp, err := sess.GetResourceMetadata(ctx)
		if err != nil {
			pterm.Error.Println(logging.PresentError("fetching resource metadata", err))
			return err
		}
		if !resp.Ok {
			pterm.Error.Printf("Server replied %s: %s\n", resp.ReplyCode, resp.ReplyText)
			return nil
		}
		renderRows(resp.Rows, metadataMaxRows)
		return nil
	},
}

// metadataClassesCmd lists the classes within one resource.
var metadataClassesCmd = &cobra.Command{
	Use:   "classes <resource>",
	Short: "List the classes of a resource",
	Args:  cobra.ExactArgs(1),
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

		resp, err := sess.GetClassMetadata(ctx, args[0])
		if err != nil {
			pterm.Error.Println(logging.PresentError("fetching class metadata", err))
			return err
		}
		if !resp.Ok {
			pterm.Error.Printf("Server replied %s: %s\n", resp.ReplyCode, resp.ReplyText)
			return nil
		}
		renderRows(resp.Rows, metadataMaxRows)
		return nil
	},
}

// metadataTableCmd shows the field table for one class of a resource.
var metadataTableCmd = &cobra.Command{
	Use:   "table <resource> <class>",
	Short: "Show the field table of a class",
	Args:  cobra.ExactArgs(2),
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

		resp, err := sess.GetTableMetadata(ctx, args[0], args[1])
		if err != nil {
			pterm.Error.Println(logging.PresentError("fetching table metadata", err))
			return err
		}
		if !resp.Ok {
			pterm.Error.Printf("Server replied %s: %s\n", resp.ReplyCode, resp.ReplyText)
			return nil
		}
		renderRows(resp.Rows, metadataMaxRows)
		return nil
	},
}

// metadataLookupCmd shows the allowed values of a lookup field.
var metadataLookupCmd = &cobra.Command{
	Use:   "lookup <resource> <lookup-name>",
	Short: "Show the allowed values of a lookup field",
	Args:  cobra.ExactArgs(2),
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

		resp, err := sess.GetLookupTypeMetadata(ctx, args[0], args[1])
		if err != nil {
			pterm.Error.Println(logging.PresentError("fetching lookup metadata", err))
			return err
		}
		if !resp.Ok {
			pterm.Error.Printf("Server replied %s: %s\n", resp.ReplyCode, resp.ReplyText)
			return nil
		}
		renderRows(resp.Rows, metadataMaxRows)
		return nil
	},
}

func init() {
	metadataCmd.PersistentFlags().IntVar(&metadataMaxRows, "max-rows", 0, "Limit displayed rows (0 shows all)")
	metadataCmd.AddCommand(metadataResourcesCmd)
	metadataCmd.AddCommand(metadataClassesCmd)
	metadataCmd.AddCommand(metadataTableCmd)
	metadataCmd.AddCommand(metadataLookupCmd)
	rootCmd.AddCommand(metadataCmd)
}
