// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"retsync/cli/internal/connstate"
	"retsync/cli/internal/keychain"

	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command for clearing the saved connection.
// It ends the server-side session (best-effort) and removes all saved
// credentials and state from the local system.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove all saved credentials and connection state",
	Long: `The logout command ends the RETS session on the server (best-effort) and
clears all connection state from the local system.

This command removes:
- RETS credentials from the OS keychain
- Local connection state
- The saved database DSN`,

	RunE: func(cmd *cobra.Command, args []string) error {
		// Try to end the server-side session (best effort - don't fail if offline)
		if sess, err := openSession(cmd.Context()); err == nil {
			_, _ = sess.Logout(cmd.Context()) // Ignore error - best effort
		}

		// Always clear local credentials regardless of server response
		if km, err := keychain.GetManager(); err == nil {
			_ = km.ClearCredentials()
			_ = km.ClearDB()
		}
		_ = connstate.SetDisconnected(cmd.Context())

		fmt.Println("✅ All credentials and connection state have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
