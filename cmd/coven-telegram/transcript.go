// ABOUTME: transcript command: reads conversations back out of the SQLite ledger
// ABOUTME: Lists recent conversations, or prints one conversation's turns in order

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-telegram/internal/config"
	"github.com/2389/coven-telegram/internal/store"
)

func newTranscriptCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transcript [conversation-id]",
		Short: "Show recorded conversations from the ledger",
		Long: "Without an argument, lists the most recent conversations in the ledger.\n" +
			"With a conversation id, prints that conversation's turns in order.\n" +
			"Requires CALLME_LEDGER_PATH.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if cfg.Ledger.Path == "" {
				return fmt.Errorf("no ledger configured: set %s", config.EnvLedgerPath)
			}

			st, err := store.NewSQLiteStore(cfg.Ledger.Path)
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer st.Close()

			if len(args) == 0 {
				return listConversations(cmd.Context(), st, cmd.OutOrStdout(), limit)
			}
			return printTranscript(cmd.Context(), st, cmd.OutOrStdout(), args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of rows to show")
	return cmd
}

func listConversations(ctx context.Context, st store.Store, out io.Writer, limit int) error {
	convs, err := st.ListConversations(ctx, limit)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Fprintln(out, "no conversations recorded")
		return nil
	}

	for _, c := range convs {
		fmt.Fprintf(out, "%-12s %3d events  %s  (%s)\n",
			c.ConversationID,
			c.Events,
			c.LastSeen.Local().Format(time.DateTime),
			c.LastSeen.Sub(c.FirstSeen).Round(time.Second),
		)
	}
	return nil
}

func printTranscript(ctx context.Context, st store.Store, out io.Writer, id string, limit int) error {
	events, err := st.GetEventsByConversation(ctx, id, limit)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no recorded conversation %q", id)
	}
	if err != nil {
		return err
	}

	agent := color.New(color.FgCyan)
	user := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	for _, e := range events {
		gray.Fprintf(out, "%s ", e.Timestamp.Local().Format(time.TimeOnly))
		switch e.Speaker {
		case store.SpeakerUser:
			user.Fprint(out, "user")
		default:
			agent.Fprint(out, "agent")
		}
		if e.Kind != store.EventKindMessage && e.Kind != store.EventKindReply {
			gray.Fprintf(out, " [%s]", e.Kind)
		}
		fmt.Fprintf(out, ": %s\n", e.Text)
	}
	return nil
}
