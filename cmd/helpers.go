// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"retsync/cli/internal/config"
	"retsync/cli/internal/connstate"
	"retsync/cli/internal/keychain"
	"retsync/cli/internal/response"
	"retsync/cli/internal/rets"

	"github.com/pterm/pterm"
)

// requireConnected checks that `retsync connect` has been run. Commands that
// talk to the server call this first so the user gets a pointer instead of a
// keychain error.
func requireConnected() bool {
	ok, err := connstate.IsConnected(context.Background())
	if err != nil || !ok {
		fmt.Println("⚠️  You need to connect to a RETS server first.")
		fmt.Println("   Please run: retsync connect")
		return false
	}
	return true
}

// nextOffset returns the 1-based Offset of the record after a page.
// current is the Offset the page was requested with, where 0 means it was
// omitted and the server applied its default of 1.
func nextOffset(current, received int) int {
	if current == 0 {
		current = 1
	}
	return current + received
}

// openSession dials the configured RETS server using the saved profile and
// the credentials from the OS keychain.
func openSession(ctx context.Context) (*rets.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Server.LoginURL == "" {
		return nil, fmt.Errorf("no RETS server configured; run 'retsync connect'")
	}

	km, err := keychain.GetManager()
	if err != nil {
		return nil, err
	}
	username, password, err := km.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("no saved credentials; run 'retsync connect': %w", err)
	}

	return rets.Dial(ctx, rets.Options{
		LoginURL:   cfg.Server.LoginURL,
		Username:   username,
		Password:   password,
		AuthScheme: cfg.Server.AuthScheme,
		Version:    cfg.Server.RETSVersion,
		UserAgent:  cfg.Server.UserAgent,
		Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		Notify: func(msg string) {
			pterm.Warning.Println(msg)
		},
	})
}

// renderRows prints decoded records as a pterm table. Columns come out
// sorted so output is stable regardless of map iteration order.
func renderRows(rows []response.Row, maxRows int) {
	if len(rows) == 0 {
		pterm.Info.Println("No records")
		return
	}

	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	sort.Strings(cols)

	shown := rows
	truncated := false
	if maxRows > 0 && len(rows) > maxRows {
		shown = rows[:maxRows]
		truncated = true
	}

	data := pterm.TableData{cols}
	for _, row := range shown {
		line := make([]string, len(cols))
		for i, col := range cols {
			line[i] = renderValue(row[col])
		}
		data = append(data, line)
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if truncated {
		pterm.Info.Printf("Showing %d of %d records\n", maxRows, len(rows))
	}
}

// renderValue formats a decoded field value for table display.
func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return response.FormatDateTime(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
