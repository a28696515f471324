// ABOUTME: Tests for the response waiter using a scripted poller
// ABOUTME: Covers cursor monotonicity, first-text-wins, destination binding, and timeouts

package waiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-telegram/internal/telegram"
)

// scriptedPoller returns one batch per call, then empty batches.
type scriptedPoller struct {
	mu      sync.Mutex
	batches [][]telegram.Update
	errs    []error
	cursors []int64
	windows []time.Duration
}

func (p *scriptedPoller) Poll(_ context.Context, cursor int64, wait time.Duration) ([]telegram.Update, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursors = append(p.cursors, cursor)
	p.windows = append(p.windows, wait)

	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(p.batches) == 0 {
		return nil, nil
	}
	b := p.batches[0]
	p.batches = p.batches[1:]
	return b, nil
}

func textUpdate(id, chat int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: id,
		Message:  &telegram.Message{MessageID: id, Chat: telegram.Chat{ID: chat}, Text: text},
	}
}

func stickerUpdate(id, chat int64) telegram.Update {
	return telegram.Update{
		UpdateID: id,
		Message:  &telegram.Message{MessageID: id, Chat: telegram.Chat{ID: chat}},
	}
}

func newTestWaiter(t *testing.T, p Poller, timeout time.Duration) *Waiter {
	t.Helper()
	w, err := New(Config{Poller: p, Timeout: timeout, PollInterval: time.Millisecond})
	require.NoError(t, err)
	return w
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Timeout: time.Second})
	assert.Error(t, err, "poller is required")

	_, err = New(Config{Poller: &scriptedPoller{}})
	assert.Error(t, err, "timeout is required")

	w, err := New(Config{Poller: &scriptedPoller{}, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, DefaultPollWindow, w.pollWindow)
	assert.Equal(t, DefaultPollInterval, w.pollInterval)
	assert.Equal(t, time.Second, w.Timeout())
}

func TestWaitForReply_FirstTextWins(t *testing.T) {
	p := &scriptedPoller{batches: [][]telegram.Update{{
		stickerUpdate(5, 100),
		textUpdate(6, 100, "second"),
		textUpdate(7, 100, "third"),
	}}}
	w := newTestWaiter(t, p, time.Minute)
	state := NewState(4, 0)

	text, err := w.WaitForReply(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "second", text)
	assert.Equal(t, int64(7), state.Cursor(), "cursor skips the rest of the batch")

	dest, bound := state.Destination()
	assert.True(t, bound)
	assert.Equal(t, int64(100), dest)
}

// logPoller serves every update in its log above the cursor, like the
// provider does for an unacknowledged offset.
type logPoller struct {
	log []telegram.Update
}

func (p *logPoller) Poll(_ context.Context, cursor int64, _ time.Duration) ([]telegram.Update, error) {
	var out []telegram.Update
	for _, u := range p.log {
		if u.UpdateID > cursor {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestWaitForReply_RestOfBatchIsNotReplayed(t *testing.T) {
	p := &logPoller{log: []telegram.Update{
		textUpdate(6, 100, "first"),
		textUpdate(7, 100, "second"),
	}}
	w := newTestWaiter(t, p, time.Minute)
	state := NewState(5, 100)

	text, err := w.WaitForReply(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "first", text)
	assert.Equal(t, int64(7), state.Cursor())

	p.log = append(p.log, textUpdate(8, 100, "third"))
	text, err = w.WaitForReply(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "third", text, "a message from an earlier batch must not answer a later wait")
	assert.Equal(t, int64(8), state.Cursor())
}

func TestWaitForReply_NonTextBatchAdvancesCursor(t *testing.T) {
	p := &scriptedPoller{batches: [][]telegram.Update{
		{stickerUpdate(10, 1), stickerUpdate(11, 1)},
		{},
		{textUpdate(12, 1, "finally")},
	}}
	w := newTestWaiter(t, p, time.Minute)
	state := NewState(9, 1)

	text, err := w.WaitForReply(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "finally", text)

	// offsets requested are cursor+1 of a non-decreasing cursor
	assert.Equal(t, []int64{9, 11, 11}, p.cursors)
	for i := 1; i < len(p.cursors); i++ {
		assert.GreaterOrEqual(t, p.cursors[i], p.cursors[i-1])
	}
}

func TestWaitForReply_CursorNeverMovesBackwards(t *testing.T) {
	p := &scriptedPoller{batches: [][]telegram.Update{
		{stickerUpdate(3, 1)}, // stale id below the cursor
		{textUpdate(50, 1, "ok")},
	}}
	w := newTestWaiter(t, p, time.Minute)
	state := NewState(40, 1)

	_, err := w.WaitForReply(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 40}, p.cursors)
	assert.Equal(t, int64(50), state.Cursor())
}

func TestWaitForReply_DoesNotRebindDestination(t *testing.T) {
	p := &scriptedPoller{batches: [][]telegram.Update{{textUpdate(1, 999, "hi")}}}
	w := newTestWaiter(t, p, time.Minute)
	state := NewState(0, 42)

	_, err := w.WaitForReply(context.Background(), state)
	require.NoError(t, err)

	dest, _ := state.Destination()
	assert.Equal(t, int64(42), dest)
}

func TestWaitForReply_Timeout(t *testing.T) {
	p := &scriptedPoller{}
	w := newTestWaiter(t, p, 50*time.Millisecond)

	start := time.Now()
	_, err := w.WaitForReply(context.Background(), NewState(0, 1))
	elapsed := time.Since(start)

	var timeoutErr *ResponseTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Greater(t, len(p.cursors), 1, "should poll more than once before giving up")
}

func TestWaitForReply_PollErrorPropagates(t *testing.T) {
	boom := &telegram.TransportError{Method: "getUpdates", StatusCode: 500}
	p := &scriptedPoller{errs: []error{boom}}
	w := newTestWaiter(t, p, time.Minute)

	_, err := w.WaitForReply(context.Background(), NewState(0, 1))
	assert.Same(t, boom, err)
}

func TestWaitForReply_ContextCancelled(t *testing.T) {
	p := &scriptedPoller{}
	w, err := New(Config{Poller: p, Timeout: time.Hour, PollInterval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = w.WaitForReply(ctx, NewState(0, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWindowShrinksToRemainingTime(t *testing.T) {
	p := &scriptedPoller{}
	w := newTestWaiter(t, p, 2500*time.Millisecond)

	clock := time.Unix(0, 0)
	w.now = func() time.Time { return clock }

	assert.Equal(t, 3*time.Second, w.window(clock))
	assert.Equal(t, time.Second, w.window(clock.Add(-2*time.Second)))
	assert.Equal(t, time.Duration(0), w.window(clock.Add(-time.Hour)))

	long := newTestWaiter(t, p, time.Hour)
	long.now = w.now
	assert.Equal(t, DefaultPollWindow, long.window(clock))
}

func TestState(t *testing.T) {
	s := NewState(10, 0)
	_, bound := s.Destination()
	assert.False(t, bound)

	s.Advance(5)
	assert.Equal(t, int64(10), s.Cursor())
	s.Advance(11)
	assert.Equal(t, int64(11), s.Cursor())

	assert.True(t, s.Bind(7))
	assert.False(t, s.Bind(8))
	dest, bound := s.Destination()
	assert.True(t, bound)
	assert.Equal(t, int64(7), dest)
}
