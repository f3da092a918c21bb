// Package cmd implements the command-line interface for voicecal.
//
// This package provides the following commands:
//   - chat: Talk to the calendar assistant interactively
//   - serve: Start the MCP server to provide tools for AI assistants
//   - auth: Authorize a Google account for calendar access
//   - version: Display version information
//
// The chat command is the default command when no subcommand is specified.
package cmd
