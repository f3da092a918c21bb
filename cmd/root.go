package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voicecal/voicecal/internal/config"
	"github.com/voicecal/voicecal/internal/google"
	"github.com/voicecal/voicecal/internal/logging"
)

// rootCmd represents the base command for the voicecal application
var rootCmd = &cobra.Command{
	Use:   "voicecal",
	Short: "Natural-language assistant for Google Calendar",
	Long: `voicecal turns plain requests like "move my 1:1 with Sam to Thursday at 3pm"
into Google Calendar changes. Destructive changes are confirmed before they
are applied, and ambiguous requests come back as questions.

It can run as:
  - An interactive chat session (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "voicecal version %s\n" .Version}}`)

	// If no subcommand is provided, run the chat command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads configuration, configures logging to stderr, and injects
// the OAuth client credentials. Every command goes through this first.
func loadRuntime() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.ParseLevel(cfg.LogLevel))
	if err := google.Configure(cfg.GoogleClientID, cfg.GoogleClientSecret); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("voicecal version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
