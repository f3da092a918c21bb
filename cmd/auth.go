package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicecal/voicecal/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a Google account for calendar access",
		Long: `Run the Google OAuth flow for an account. Prints the authorization URL,
waits for the code, and stores the token. Tokens are refreshed
automatically afterwards, so this only needs to run once per account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadRuntime(); err != nil {
				return err
			}

			if google.HasTokenForAccount(account) {
				fmt.Printf("Account %q is already authorized.\n", account)
				return nil
			}

			fmt.Printf("Visit this URL to authorize account %q:\n\n  %s\n\n", account, google.GetAuthURLForAccount(account))
			fmt.Print("Paste the authorization code here: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return err
			}

			fmt.Printf("Authorization successful for account %q.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to authorize (default: 'default')")
	return cmd
}
