// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"retsync/cli/internal/config"
	"retsync/cli/internal/connstate"
	"retsync/cli/internal/httperrors"
	"retsync/cli/internal/keychain"
	"retsync/cli/internal/rets"
	"retsync/cli/internal/terminal"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	verboseConnect bool
	connectScheme  string
	connectAgent   string
)

// connectCmd represents the connect command for establishing a RETS session.
// It prompts the user for the server's login URL and credentials, verifies
// them with a real Login transaction, and saves the profile for future use.
// Credentials go to the OS keychain; the rest of the profile goes to the
// config file.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Configure and verify the RETS server connection",
	Long: `The connect command prompts for a RETS login URL, username, and password,
then verifies them by performing a Login transaction against the server.
On success the credentials are stored in the OS keychain and the server
profile in the config file.

Example login URL: https://rets.example.com/rets/Login`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Enable verbose mode for all modules if --verbose is set
		if verboseConnect {
			os.Setenv("RETSYNC_VERBOSE", "1")
		}

		ctx := cmd.Context()
		reader := bufio.NewReader(os.Stdin)

		urlPrompt := "Enter RETS login URL (e.g., https://rets.example.com/rets/Login): "
		fmt.Print(urlPrompt)
		loginURL, _ := reader.ReadString('\n')
		loginURL = strings.TrimSpace(loginURL)
		if loginURL == "" {
			return errors.New("login URL is required")
		}

		userPrompt := "Username: "
		fmt.Print(userPrompt)
		username, _ := reader.ReadString('\n')
		username = strings.TrimSpace(username)
		if username == "" {
			return errors.New("username is required")
		}

		fmt.Print("Password: ")
		passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password := strings.TrimSpace(string(passBytes))
		if password == "" {
			return errors.New("password is required")
		}

		// Clear the prompts and typed input from the terminal. The password
		// was never echoed, so only URL and username lines need clearing.
		terminal.ClearPreviousLines(len(urlPrompt) + len(loginURL))
		terminal.ClearPreviousLines(len(userPrompt) + len(username))

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cfg.Server.LoginURL = loginURL
		if connectScheme != "" {
			cfg.Server.AuthScheme = connectScheme
		}
		if connectAgent != "" {
			cfg.Server.UserAgent = connectAgent
		}

		// Verify with a real Login transaction
		startTime := time.Now()
		stopSpinner := startInlineSpinner(os.Stdout, "verifying connection",
			[]string{"-", "\\", "|", "/"}, 100*time.Millisecond)

		sess, err := rets.Dial(ctx, rets.Options{
			LoginURL:   cfg.Server.LoginURL,
			Username:   username,
			Password:   password,
			AuthScheme: cfg.Server.AuthScheme,
			Version:    cfg.Server.RETSVersion,
			UserAgent:  cfg.Server.UserAgent,
			Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			stopSpinner()
			fmt.Println("❌ Could not log in to the RETS server.")
			return httperrors.FormatNetworkError(err, "logging in to "+httperrors.ExtractHostFromURL(loginURL))
		}
		defer func() { _, _ = sess.Logout(ctx) }()

		// Keep the spinner visible long enough to register
		if elapsed := time.Since(startTime); elapsed < 2*time.Second {
			time.Sleep(2*time.Second - elapsed)
		}
		stopSpinner()

		// Save credentials securely in the OS keychain
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			fmt.Println("   Keychain is only supported on macOS and Windows.")
			fmt.Println("   Connection verified but not saved.")
			return err
		}
		if err := km.SaveCredentials(username, password); err != nil {
			fmt.Println("❌ Failed to save credentials securely.")
			return err
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		if err := connstate.SetConnected(ctx, username); err != nil {
			return err
		}

		fmt.Println("✅ RETS connection verified and saved!")
		fmt.Println("   Explore the server with 'retsync metadata resources'")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().BoolVarP(&verboseConnect, "verbose", "v", false, "Enable verbose debug output")
	connectCmd.Flags().StringVar(&connectScheme, "auth", "", "Auth scheme: digest (default) or basic")
	connectCmd.Flags().StringVar(&connectAgent, "user-agent", "", "User-Agent header to present to the server")
}
