// ABOUTME: whoami command: checks the bot token against getMe and prints the bot identity
// ABOUTME: Useful before wiring the server into an MCP client

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/2389/coven-telegram/internal/config"
	"github.com/2389/coven-telegram/internal/telegram"
)

func runWhoami(ctx context.Context, out io.Writer) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	client, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.BotToken,
		BaseURL: cfg.Telegram.APIURL,
		Logger:  setupLogger(cfg.Logging, io.Discard),
	})
	if err != nil {
		return err
	}

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot token: %w", err)
	}

	fmt.Fprintf(out, "@%s (%s, id %d)\n", me.Username, me.FirstName, me.ID)
	if cfg.Telegram.ChatID != 0 {
		fmt.Fprintf(out, "chat: %d\n", cfg.Telegram.ChatID)
	} else {
		fmt.Fprintln(out, "chat: not configured, bound from the first message you send the bot")
	}
	return nil
}
