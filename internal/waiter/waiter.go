// ABOUTME: Response waiter that long-polls Telegram until a text reply arrives or the timeout passes
// ABOUTME: Owns cursor advancement and lazy destination binding through an explicit State

package waiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-telegram/internal/telegram"
)

// Defaults match the Bot API long-poll window and the pause between polls.
const (
	DefaultPollWindow   = 10 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Poller is what the waiter needs from the transport client.
type Poller interface {
	Poll(ctx context.Context, cursor int64, wait time.Duration) ([]telegram.Update, error)
}

// ResponseTimeoutError is returned when no text message arrived in time.
type ResponseTimeoutError struct {
	Timeout time.Duration
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("response timeout - no message received within %s", e.Timeout)
}

// Config holds configuration for the waiter.
type Config struct {
	Poller       Poller
	Timeout      time.Duration // overall response window per WaitForReply call
	PollWindow   time.Duration // provider-side long-poll timeout
	PollInterval time.Duration // pause between polls that found nothing
	Logger       *slog.Logger
}

// Waiter turns repeated polls into a single "wait for the user's reply".
type Waiter struct {
	poller       Poller
	timeout      time.Duration
	pollWindow   time.Duration
	pollInterval time.Duration
	logger       *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Waiter.
func New(cfg Config) (*Waiter, error) {
	if cfg.Poller == nil {
		return nil, fmt.Errorf("poller is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	pollWindow := cfg.PollWindow
	if pollWindow <= 0 {
		pollWindow = DefaultPollWindow
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Waiter{
		poller:       cfg.Poller,
		timeout:      cfg.Timeout,
		pollWindow:   pollWindow,
		pollInterval: pollInterval,
		logger:       logger.With("component", "waiter"),
		now:          time.Now,
		sleep:        sleepContext,
	}, nil
}

// Timeout returns the configured response window.
func (w *Waiter) Timeout() time.Duration {
	return w.timeout
}

// WaitForReply polls until a text message arrives and returns its text.
//
// Every update seen moves the cursor forward, text or not, so nothing is
// fetched twice. The first text message in a batch wins and binds the
// destination if none is bound yet. Any updates after it in the same
// batch are consumed without being delivered: two messages sent inside
// one poll window lose the second one.
//
// The caller must not run two waits against the same State at once.
func (w *Waiter) WaitForReply(ctx context.Context, state *State) (string, error) {
	start := w.now()

	for {
		updates, err := w.poller.Poll(ctx, state.Cursor(), w.window(start))
		if err != nil {
			return "", err
		}

		for i, u := range updates {
			state.Advance(u.UpdateID)
			if !u.HasText() {
				continue
			}

			for _, rest := range updates[i+1:] {
				state.Advance(rest.UpdateID)
			}
			if state.Bind(u.Message.Chat.ID) {
				w.logger.Info("destination bound from inbound message", "chat_id", u.Message.Chat.ID)
			}
			w.logger.Debug("reply received",
				"update_id", u.UpdateID,
				"chat_id", u.Message.Chat.ID,
				"dropped", len(updates)-i-1,
			)
			return u.Message.Text, nil
		}

		if w.now().Sub(start) >= w.timeout {
			return "", &ResponseTimeoutError{Timeout: w.timeout}
		}
		if err := w.sleep(ctx, w.pollInterval); err != nil {
			return "", err
		}
	}
}

// window shrinks the long-poll to the time left, rounded up to whole
// seconds since that is the provider's resolution.
func (w *Waiter) window(start time.Time) time.Duration {
	remaining := w.timeout - w.now().Sub(start)
	if remaining >= w.pollWindow {
		return w.pollWindow
	}
	if remaining <= 0 {
		return 0
	}
	return ((remaining + time.Second - 1) / time.Second) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
