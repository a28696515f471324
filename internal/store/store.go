// ABOUTME: Ledger interface and event types for the conversation audit trail
// ABOUTME: Records every turn relayed through Telegram; sessions are never restored from it

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Speaker identifies who authored a turn.
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerUser  Speaker = "user"
)

// EventKind categorizes a ledger entry.
type EventKind string

const (
	EventKindMessage      EventKind = "message"      // agent message that expects a reply
	EventKindReply        EventKind = "reply"        // user reply
	EventKindNotification EventKind = "notification" // agent message with no reply expected
	EventKindClosing      EventKind = "closing"      // final agent message of a conversation
)

// LedgerEvent is one relayed turn.
type LedgerEvent struct {
	ID             string
	ConversationID string
	Kind           EventKind
	Speaker        Speaker
	Text           string
	Timestamp      time.Time
}

// Ledger is the write side the conversation manager depends on.
type Ledger interface {
	SaveEvent(ctx context.Context, event *LedgerEvent) error
}

// Store is the full ledger surface, including read-back for transcripts.
type Store interface {
	Ledger
	GetEventsByConversation(ctx context.Context, conversationID string, limit int) ([]*LedgerEvent, error)
	ListConversations(ctx context.Context, limit int) ([]ConversationSummary, error)
	Close() error
}

// ConversationSummary describes one conversation found in the ledger.
type ConversationSummary struct {
	ConversationID string
	Events         int
	FirstSeen      time.Time
	LastSeen       time.Time
}
