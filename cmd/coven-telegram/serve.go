// ABOUTME: serve command: wires config, Telegram client, waiter, conversations and the MCP server
// ABOUTME: Drains stale updates before serving and discards every conversation on shutdown

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/2389/coven-telegram/internal/config"
	"github.com/2389/coven-telegram/internal/conversation"
	"github.com/2389/coven-telegram/internal/mcpserver"
	"github.com/2389/coven-telegram/internal/metrics"
	"github.com/2389/coven-telegram/internal/store"
	"github.com/2389/coven-telegram/internal/telegram"
	"github.com/2389/coven-telegram/internal/waiter"
)

func runServe(ctx context.Context) error {
	printBanner(os.Stderr)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	chat := "bind from first message"
	if cfg.Telegram.ChatID != 0 {
		chat = strconv.FormatInt(cfg.Telegram.ChatID, 10)
	}
	printSetting(os.Stderr, "Chat", chat)
	printSetting(os.Stderr, "Timeout", cfg.Conversation.ResponseTimeout().String())
	printSetting(os.Stderr, "MCP", cfg.Server.MCPTransport)
	if cfg.Server.HTTPAddr != "" {
		printSetting(os.Stderr, "HTTP", cfg.Server.HTTPAddr)
	}
	if cfg.Ledger.Path != "" {
		printSetting(os.Stderr, "Ledger", cfg.Ledger.Path)
	}
	fmt.Fprintln(os.Stderr)

	m := metrics.New()

	client, err := telegram.New(telegram.Config{
		Token:    cfg.Telegram.BotToken,
		BaseURL:  cfg.Telegram.APIURL,
		Logger:   logger,
		Observer: m,
	})
	if err != nil {
		return fmt.Errorf("creating telegram client: %w", err)
	}

	// Skip anything sent before we started.
	cursor, ok := client.Drain(ctx)
	if ok {
		logger.Info("drained pending updates", "cursor", cursor)
	}
	state := waiter.NewState(cursor, cfg.Telegram.ChatID)

	w, err := waiter.New(waiter.Config{
		Poller:       client,
		Timeout:      cfg.Conversation.ResponseTimeout(),
		PollWindow:   cfg.Telegram.PollWindow,
		PollInterval: cfg.Telegram.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating waiter: %w", err)
	}

	var ledger store.Ledger
	if cfg.Ledger.Path != "" {
		st, err := store.NewSQLiteStore(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer st.Close()
		ledger = st
	}

	mgr, err := conversation.NewManager(conversation.Config{
		Sender:   client,
		Waiter:   w,
		State:    state,
		Ledger:   ledger,
		Observer: m,
		Label:    cfg.Conversation.AgentLabel,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating conversation manager: %w", err)
	}
	defer mgr.Shutdown()

	srv, err := mcpserver.New(mcpserver.Config{
		Conversations: mgr,
		Name:          "coven-telegram",
		Version:       version,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	var httpErr <-chan error
	if cfg.Server.HTTPAddr != "" {
		routerCfg := metrics.RouterConfig{Metrics: m, Logger: logger}
		if cfg.Server.MCPTransport == config.TransportHTTP {
			routerCfg.MCP = srv.HTTPHandler(cfg.Server.MCPToken)
		}
		errc, stop, err := startHTTP(cfg.Server.HTTPAddr, metrics.NewRouter(routerCfg), logger)
		if err != nil {
			return err
		}
		defer stop()
		httpErr = errc
	}

	logger.Info("coven-telegram ready",
		"transport", cfg.Server.MCPTransport,
		"cursor", state.Cursor(),
	)

	if cfg.Server.MCPTransport == config.TransportHTTP {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case err := <-httpErr:
			return err
		}
	}

	err = srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	logger.Info("shutting down")
	return err
}

// startHTTP binds addr and serves handler in the background. A bind
// failure is returned directly; a later serve failure is sent on the
// returned channel. stop shuts the server down.
func startHTTP(addr string, handler http.Handler, logger *slog.Logger) (<-chan error, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: MCP tool calls wait on the user.
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			errc <- fmt.Errorf("serving HTTP: %w", err)
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server forced to shutdown", "error", err)
		}
	}
	return errc, stop, nil
}
