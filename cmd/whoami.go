package cmd

import (
	"fmt"

	"retsync/cli/internal/connstate"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// whoamiCmd represents the whoami command for displaying the current session.
// It validates the stored credentials by performing a fresh Login transaction
// and shows the account plus the transaction endpoints the server grants.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current RETS account and its capabilities",
	Long: `The whoami command displays the account retsync is connected as. It performs
a fresh Login transaction to verify the stored credentials still work and
lists the transaction endpoints the server advertises for this account.

If no connection is configured, it will point you to 'retsync connect'.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := connstate.Load()
		if err != nil || !st.Connected {
			fmt.Println("🔒 You're not connected yet!")
			fmt.Println("   Run 'retsync connect' to get started.")
			return nil
		}

		sess, err := openSession(ctx)
		if err != nil {
			fmt.Println("🔒 Stored credentials no longer work.")
			fmt.Println("   Run 'retsync connect' to re-authenticate.")
			return err
		}
		defer func() { _, _ = sess.Logout(ctx) }()

		fmt.Printf("👤 Connected as: %s\n", st.Account)
		pterm.Println()

		caps := sess.Capabilities()
		// Identity keys the server included in its login reply (MemberName,
		// User, Broker and the like end up in Extra)
		for _, key := range []string{"MemberName", "User", "Broker"} {
			if v, ok := caps.Extra[key]; ok && v != "" {
				pterm.Printf("%s: %s\n", key, v)
			}
		}
		pterm.Println()
		data := pterm.TableData{{"Transaction", "Endpoint"}}
		for _, entry := range []struct{ name, url string }{
			{"Search", caps.Search},
			{"GetMetadata", caps.GetMetadata},
			{"GetObject", caps.GetObject},
			{"Update", caps.Update},
			{"PostObject", caps.PostObject},
			{"Logout", caps.Logout},
		} {
			if entry.url == "" {
				data = append(data, []string{entry.name, pterm.NewStyle(pterm.FgGray).Sprint("not available")})
				continue
			}
			data = append(data, []string{entry.name, entry.url})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

		if caps.MetadataVersion != "" {
			pterm.Println()
			pterm.Printf("Metadata version: %s", caps.MetadataVersion)
			if caps.MetadataTimestamp != "" {
				pterm.Printf(" (as of %s)", caps.MetadataTimestamp)
			}
			pterm.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
