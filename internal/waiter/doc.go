// Package waiter turns Telegram long-polls into a blocking "wait for the
// user's reply" with a timeout.
//
// The poll cursor and the bound destination live in an explicit *State
// rather than on the transport client, so the single-flight requirement
// is visible at every call site:
//
//	state := waiter.NewState(drainedCursor, cfg.Telegram.ChatID)
//	w, _ := waiter.New(waiter.Config{Poller: client, Timeout: 3 * time.Minute})
//	text, err := w.WaitForReply(ctx, state)
//
// Known limitation: only the first text message of a poll batch is
// delivered; the rest of that batch is consumed and dropped.
package waiter
