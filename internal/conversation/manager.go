// ABOUTME: Manager owns live conversation sessions and runs open/continue/notify/end
// ABOUTME: Every send goes to the bound destination; every reply comes from the shared waiter state

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-telegram/internal/store"
	"github.com/2389/coven-telegram/internal/waiter"
)

// Sender defines what the manager needs from the transport client.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (int64, error)
}

// ReplyWaiter defines what the manager needs from the response waiter.
type ReplyWaiter interface {
	WaitForReply(ctx context.Context, state *waiter.State) (string, error)
}

// Observer receives per-operation outcomes, typically for metrics.
type Observer interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
	SetActiveSessions(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, error, time.Duration) {}
func (nopObserver) SetActiveSessions(int)                         {}

// Config holds the manager's collaborators.
type Config struct {
	Sender   Sender
	Waiter   ReplyWaiter
	State    *waiter.State
	Ledger   store.Ledger // optional
	Observer Observer     // optional
	Label    string       // agent name in outbound messages, DefaultLabel if empty
	Logger   *slog.Logger
}

// Manager holds every live session. It must be driven by one caller at a
// time; see the package documentation.
type Manager struct {
	sender   Sender
	waiter   ReplyWaiter
	state    *waiter.State
	ledger   store.Ledger
	observer Observer
	label    string
	logger   *slog.Logger

	sessions map[string]*Session
	nextID   uint64
	runID    string // tells ids from different processes apart in the ledger

	now func() time.Time
}

// NewManager creates a new Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if cfg.Waiter == nil {
		return nil, fmt.Errorf("waiter is required")
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("waiter state is required")
	}

	label := cfg.Label
	if label == "" {
		label = DefaultLabel
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		sender:   cfg.Sender,
		waiter:   cfg.Waiter,
		state:    cfg.State,
		ledger:   cfg.Ledger,
		observer: observer,
		label:    label,
		logger:   logger.With("component", "conversation"),
		sessions: make(map[string]*Session),
		runID:    uuid.NewString()[:8],
		now:      time.Now,
	}, nil
}

// Open starts a conversation and returns its id with the user's first reply.
//
// When no destination is bound yet, Open first waits for the user to write
// in; that message only binds the chat and is discarded. On any failure the
// session is removed before the error is returned.
func (m *Manager) Open(ctx context.Context, text string) (id, reply string, err error) {
	start := m.now()
	defer func() { m.observe("open", err, start) }()

	m.nextID++
	id = fmt.Sprintf("conv-%d-%s", m.nextID, m.runID)
	sess := &Session{ID: id, StartTime: start, Active: true}
	m.sessions[id] = sess
	m.observer.SetActiveSessions(len(m.sessions))

	m.logger.Info("opening conversation", "conversation_id", id, "message", truncate(text, 50))

	if _, bound := m.state.Destination(); !bound {
		m.logger.Info("no chat bound, waiting for the user to send a message first")
		if _, err = m.waiter.WaitForReply(ctx, m.state); err != nil {
			m.discard(id, err)
			return "", "", err
		}
	}

	reply, err = m.exchange(ctx, sess, text)
	if err != nil {
		m.discard(id, err)
		return "", "", err
	}
	return id, reply, nil
}

// Continue sends text on an active conversation and returns the reply.
func (m *Manager) Continue(ctx context.Context, id, text string) (reply string, err error) {
	start := m.now()
	defer func() { m.observe("continue", err, start) }()

	sess, err := m.active(id)
	if err != nil {
		return "", err
	}
	return m.exchange(ctx, sess, text)
}

// Notify sends text on an active conversation without waiting for a reply.
func (m *Manager) Notify(ctx context.Context, id, text string) (err error) {
	start := m.now()
	defer func() { m.observe("notify", err, start) }()

	sess, err := m.active(id)
	if err != nil {
		return err
	}
	if err := m.send(ctx, formatAgent(m.label, text)); err != nil {
		return err
	}

	sess.History = append(sess.History, Turn{Speaker: SpeakerAgent, Text: text})
	m.record(id, store.EventKindNotification, store.SpeakerAgent, text)
	return nil
}

// End sends the closing message, removes the conversation and returns its
// length in whole seconds. If the closing send fails the session is kept so
// the caller may retry.
func (m *Manager) End(ctx context.Context, id, text string) (seconds int64, err error) {
	start := m.now()
	defer func() { m.observe("end", err, start) }()

	sess, ok := m.sessions[id]
	if !ok {
		return 0, &UnknownConversationError{ID: id}
	}
	if err := m.send(ctx, formatClosing(m.label, text)); err != nil {
		return 0, err
	}

	sess.Active = false
	elapsed := m.now().Sub(sess.StartTime)
	delete(m.sessions, id)
	m.observer.SetActiveSessions(len(m.sessions))
	m.record(id, store.EventKindClosing, store.SpeakerAgent, text)

	seconds = int64(math.Round(elapsed.Seconds()))
	m.logger.Info("conversation ended",
		"conversation_id", id,
		"turns", len(sess.History),
		"duration_seconds", seconds,
	)
	return seconds, nil
}

// Shutdown discards every session without notifying anyone.
func (m *Manager) Shutdown() {
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.observer.SetActiveSessions(0)
	m.logger.Info("discarded conversations", "count", n)
}

// Get returns a copy of the session with the given id.
func (m *Manager) Get(id string) (Session, bool) {
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// Len returns the number of sessions held.
func (m *Manager) Len() int {
	return len(m.sessions)
}

func (m *Manager) active(id string) (*Session, error) {
	sess, ok := m.sessions[id]
	if !ok || !sess.Active {
		return nil, &UnknownConversationError{ID: id}
	}
	return sess, nil
}

// exchange sends text, waits for the reply and appends both turns.
func (m *Manager) exchange(ctx context.Context, sess *Session, text string) (string, error) {
	if err := m.send(ctx, formatAgent(m.label, text)); err != nil {
		return "", err
	}
	m.record(sess.ID, store.EventKindMessage, store.SpeakerAgent, text)

	reply, err := m.waiter.WaitForReply(ctx, m.state)
	if err != nil {
		return "", err
	}

	sess.History = append(sess.History,
		Turn{Speaker: SpeakerAgent, Text: text},
		Turn{Speaker: SpeakerUser, Text: reply},
	)
	m.record(sess.ID, store.EventKindReply, store.SpeakerUser, reply)

	m.logger.Debug("reply received", "conversation_id", sess.ID, "reply", truncate(reply, 50))
	return reply, nil
}

func (m *Manager) send(ctx context.Context, text string) error {
	chatID, bound := m.state.Destination()
	if !bound {
		return ErrNoDestination
	}
	_, err := m.sender.Send(ctx, chatID, text)
	return err
}

// discard drops a session whose open failed.
func (m *Manager) discard(id string, cause error) {
	delete(m.sessions, id)
	m.observer.SetActiveSessions(len(m.sessions))
	m.logger.Warn("open failed, conversation discarded", "conversation_id", id, "error", cause)
}

// record saves a turn to the ledger with a separate timeout context so a
// cancelled request still gets its audit entry.
func (m *Manager) record(id string, kind store.EventKind, speaker store.Speaker, text string) {
	if m.ledger == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.ledger.SaveEvent(saveCtx, &store.LedgerEvent{
		ConversationID: id,
		Kind:           kind,
		Speaker:        speaker,
		Text:           text,
		Timestamp:      m.now().UTC(),
	})
	if err != nil {
		m.logger.Error("failed to record ledger event",
			"error", err,
			"conversation_id", id,
			"kind", kind,
		)
	}
}

func (m *Manager) observe(op string, err error, start time.Time) {
	m.observer.ObserveOperation(op, err, m.now().Sub(start))
}
