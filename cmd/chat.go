package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicecal/voicecal/internal/server"
)

func newChatCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the calendar assistant interactively",
		Long: `Start an interactive session with the calendar assistant. Each line you
type is one request; the assistant replies on the next line. Pending
confirmations carry over, so you can answer "Delete "Standup"? (yes/no)"
with a plain yes.

Type "exit" or press Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return err
			}

			sc := server.NewServerContext(cmd.Context(), cfg)
			defer func() { _ = sc.Shutdown() }()

			session, err := sc.SessionForAccount(account)
			if err != nil {
				var notAuth *server.NotAuthorizedError
				if errors.As(err, &notAuth) {
					return fmt.Errorf("%w\nRun 'voicecal auth --account %s' to authorize", err, account)
				}
				return err
			}

			fmt.Println("voicecal ready. What would you like to do with your calendar?")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				out, err := session.Process(cmd.Context(), line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				fmt.Println(out.Reply)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use (default: 'default')")
	return cmd
}
