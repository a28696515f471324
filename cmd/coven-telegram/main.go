// ABOUTME: Entry point for coven-telegram, an MCP server that relays agent conversations over Telegram
// ABOUTME: Defines the cobra command tree: serve (default), whoami, transcript, version

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                       _       _
  ___ _____   _____ _ __       _ __ ___| | __ _ _   _
 / __/ _ \ \ / / _ \ '_ \ ____| '__/ _ \ |/ _' | | | |
| (_| (_) \ V /  __/ | | |____| | |  __/ | (_| | |_| |
 \___\___/ \_/ \___|_| |_|    |_|  \___|_|\__,_|\__, |
                                                |___/
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coven-telegram",
		Short:         "Let an agent talk to you on Telegram over MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal; the environment is used as-is.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the MCP tools (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Verify the bot token and print the bot's identity",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWhoami(cmd.Context(), cmd.OutOrStdout())
			},
		},
		newTranscriptCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "coven-telegram %s\n", version)
			},
		},
	)

	return root
}

// printBanner writes the startup banner. Stdout carries MCP, so this goes to w.
func printBanner(w io.Writer) {
	cyan := color.New(color.FgCyan)
	cyan.Fprint(w, banner)

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(w, "    version: %s\n\n", version)
}

// printSetting writes one "▶ Name: value" startup line.
func printSetting(w io.Writer, name, value string) {
	green := color.New(color.FgGreen)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "%-10s %s\n", name+":", value)
}
