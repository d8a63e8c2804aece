// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"retsync/cli/internal/config"
	"retsync/cli/internal/dsn"
	"retsync/cli/internal/errors"
	"retsync/cli/internal/keychain"
	"retsync/cli/internal/logging"
	"retsync/cli/internal/pgload"
	"retsync/cli/internal/response"
	"retsync/cli/internal/rets"
	"retsync/cli/internal/syncui"

	"atomicgo.dev/cursor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	verboseSync  bool
	syncQuery    string
	syncSelect   string
	syncTable    string
	syncTruncate bool
	syncPageSize int
)

// syncCmd represents the sync command for replicating RETS records into
// PostgreSQL. It pages through a Search result set and batch-loads each page,
// creating the destination table on first contact.
var syncCmd = &cobra.Command{
	Use:   "sync <resource> <class>",
	Short: "Sync matching records into the PostgreSQL target",
	Long: `The sync command replicates records from a RETS resource class into the
configured PostgreSQL database. It pages through the result set using
Limit/Offset, creates the destination table from the decoded field types if
needed, and batch-inserts each page inside a transaction.

Rate limiting by the server is handled automatically with backoff.

Example:
  retsync sync Property RES --query "(ListingStatus=|A)" --table property_res`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Enable verbose mode for all modules if --verbose is set
		if verboseSync {
			os.Setenv("RETSYNC_VERBOSE", "1")
		}
		if !requireConnected() {
			return nil
		}

		ctx := cmd.Context()
		resource, class := args[0], args[1]

		// Resolve DSN from env or keychain (not from config)
		rawDSN := ""
		if env := os.Getenv("RETSYNC_DSN"); strings.TrimSpace(env) != "" {
			rawDSN = strings.TrimSpace(env)
		} else if env := os.Getenv("DATABASE_URL"); strings.TrimSpace(env) != "" {
			rawDSN = strings.TrimSpace(env)
		}
		if strings.TrimSpace(rawDSN) == "" {
			if km, err := keychain.GetManager(); err == nil {
				if v, err := km.LoadDBDSN(); err == nil && strings.TrimSpace(v) != "" {
					rawDSN = strings.TrimSpace(v)
				}
			}
		}
		if strings.TrimSpace(rawDSN) == "" {
			fmt.Println("⚠️  No database connection configured.")
			fmt.Println("   Please run 'retsync target' to configure your database.")
			return nil
		}

		normalizedDSN, err := dsn.Normalize(rawDSN)
		if err != nil {
			fmt.Println("❌ Invalid database connection string.")
			var parseErr *dsn.ParseError
			if stderrors.As(err, &parseErr) {
				fmt.Println("   " + parseErr.Error())
			}
			fmt.Println("   Please run 'retsync target' to reconfigure your database.")
			return err
		}

		// Display database connection info (masked)
		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Database:   ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(deriveDBName(normalizedDSN)))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Connection: ") + pterm.NewStyle(pterm.FgLightBlue).Sprint(logging.Mask(normalizedDSN)))
		pterm.Println()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pageSize := cfg.Sync.PageSize
		if syncPageSize > 0 {
			pageSize = syncPageSize
		}

		table := syncTable
		if table == "" {
			table = strings.ToLower(resource + "_" + class)
		}

		state := syncui.NewProgressState()
		render := syncui.NewRenderer(state)
		classLabel := resource + ":" + class

		sess, err := openSession(ctx)
		if err != nil {
			pterm.Printf("❌ Failed to log in to the RETS server\n")
			pterm.Println(logging.PresentError("", err))
			return err
		}
		defer func() { _, _ = sess.Logout(ctx) }()

		loader, err := pgload.Connect(ctx, normalizedDSN)
		if err != nil {
			pterm.Printf("❌ Failed to connect to database\n")
			pterm.Println(logging.PresentError("", err))
			return err
		}
		defer loader.Close()

		cursor.Hide()
		defer cursor.Show()

		// Count first so the UI can show progress against a total. A server
		// that rejects count-only queries still gets synced, just without one.
		total, err := sess.GetCount(ctx, resource, class, syncQuery)
		if err != nil {
			if verboseSync {
				fmt.Printf("[DEBUG] sync: count failed: %v\n", err)
			}
			total = 0
		}
		render.Render(syncui.Event{Type: syncui.EventClassStart, Class: classLabel, Total: total})

		req := rets.SearchRequest{
			Resource: resource,
			Class:    class,
			Query:    syncQuery,
			Limit:    pageSize,
		}
		if syncSelect != "" {
			req.Select = strings.Split(syncSelect, ",")
		}

		if _, err := syncClass(ctx, sess, loader, req, table, syncTruncate, render, classLabel); err != nil {
			render.Summary()
			if errors.HasKind(err, errors.RequestFailed) {
				logging.PresentTransportError(err.Error())
			}
			return err
		}

		render.Summary()
		return nil
	},
}

// rowLoader is the slice of the Postgres loader the paging loop needs.
type rowLoader interface {
	EnsureTable(ctx context.Context, table string, rows []response.Row) error
	InsertRows(ctx context.Context, table string, rows []response.Row) (int64, error)
	TruncateTable(ctx context.Context, table string) error
}

// syncClass pages through one Search result set and loads each page into the
// destination table. RETS Offset is 1-based: the first page relies on the
// server default of 1, and every following page starts at the record after
// the last one received. Paging advances by records received, not records
// written, so rows the loader skips never shift the window. Returns the
// number of rows written.
func syncClass(ctx context.Context, sess *rets.Session, loader rowLoader, req rets.SearchRequest, table string, truncate bool, render *syncui.Renderer, classLabel string) (int, error) {
	fail := func(msg string) {
		render.Render(syncui.Event{Type: syncui.EventClassFailed, Class: classLabel, Message: msg})
	}

	written := 0
	firstPage := true
	for {
		resp, err := sess.GetData(ctx, req)
		if err != nil {
			fail(err.Error())
			return written, err
		}
		if !resp.Ok {
			reason := fmt.Sprintf("server replied %s: %s", resp.ReplyCode, resp.ReplyText)
			fail(reason)
			return written, fmt.Errorf("%s", reason)
		}
		if len(resp.Rows) == 0 {
			break
		}

		if firstPage {
			if truncate {
				// Best effort: the table may not exist yet on a first run.
				_ = loader.TruncateTable(ctx, table)
			}
			if err := loader.EnsureTable(ctx, table, resp.Rows); err != nil {
				fail(err.Error())
				return written, err
			}
			firstPage = false
		}

		n, err := loader.InsertRows(ctx, table, resp.Rows)
		if err != nil {
			fail(err.Error())
			return written, err
		}
		written += int(n)
		render.Render(syncui.Event{Type: syncui.EventPageLoaded, Class: classLabel, Records: int(n)})

		if !resp.MoreRows {
			break
		}
		req.Offset = nextOffset(req.Offset, len(resp.Rows))
	}

	render.Render(syncui.Event{Type: syncui.EventClassDone, Class: classLabel})
	return written, nil
}

// deriveDBName extracts the database name from a normalized DSN for display.
func deriveDBName(normalizedDSN string) string {
	u, err := url.Parse(normalizedDSN)
	if err != nil || u.Path == "" {
		return "database"
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "database"
	}
	return name
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVarP(&verboseSync, "verbose", "v", false, "Enable verbose debug output")
	syncCmd.Flags().StringVar(&syncQuery, "query", "", "DMQL2 query selecting the records to sync")
	syncCmd.Flags().StringVar(&syncSelect, "select", "", "Comma-separated fields to sync (default all)")
	syncCmd.Flags().StringVar(&syncTable, "table", "", "Destination table name (default <resource>_<class>)")
	syncCmd.Flags().BoolVar(&syncTruncate, "truncate", false, "Empty the destination table before loading")
	syncCmd.Flags().IntVar(&syncPageSize, "page-size", 0, "Records per Search page (default from config)")
	_ = syncCmd.MarkFlagRequired("query")
}
