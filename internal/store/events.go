// ABOUTME: Ledger event persistence: append relayed turns and read them back per conversation
// ABOUTME: Timestamps are stored fixed-width UTC so lexical order matches time order

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timestampLayout keeps every nanosecond digit so stored strings sort correctly.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	defaultEventLimit = 500
	maxEventLimit     = 5000
)

// SaveEvent persists a ledger event to the database.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event *LedgerEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO conversation_events (event_id, conversation_id, kind, speaker, text, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.ConversationID,
		string(event.Kind),
		string(event.Speaker),
		event.Text,
		event.Timestamp.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("saved ledger event",
		"event_id", event.ID,
		"conversation_id", event.ConversationID,
		"kind", event.Kind,
	)
	return nil
}

// GetEventsByConversation returns a conversation's events oldest first.
// Returns ErrNotFound if the conversation has no events.
func (s *SQLiteStore) GetEventsByConversation(ctx context.Context, conversationID string, limit int) ([]*LedgerEvent, error) {
	limit = clampLimit(limit)

	query := `
		SELECT event_id, conversation_id, kind, speaker, text, timestamp
		FROM conversation_events
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, rowid ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*LedgerEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

// ListConversations returns the most recently active conversations first.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	limit = clampLimit(limit)

	query := `
		SELECT conversation_id, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM conversation_events
		GROUP BY conversation_id
		ORDER BY MAX(timestamp) DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var first, last string
		if err := rows.Scan(&sum.ConversationID, &sum.Events, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if sum.FirstSeen, err = time.Parse(timestampLayout, first); err != nil {
			return nil, fmt.Errorf("parsing first_seen: %w", err)
		}
		if sum.LastSeen, err = time.Parse(timestampLayout, last); err != nil {
			return nil, fmt.Errorf("parsing last_seen: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (*LedgerEvent, error) {
	var (
		event             LedgerEvent
		kind, speaker, ts string
	)
	if err := rows.Scan(&event.ID, &event.ConversationID, &kind, &speaker, &event.Text, &ts); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	event.Kind = EventKind(kind)
	event.Speaker = Speaker(speaker)

	parsed, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	event.Timestamp = parsed
	return &event, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}
