// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	events []*LedgerEvent
	err    error // returned by SaveEvent when set
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// FailWith makes subsequent SaveEvent calls return err.
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SaveEvent stores a copy of event.
func (m *MockStore) SaveEvent(ctx context.Context, event *LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	e := *event
	m.events = append(m.events, &e)
	return nil
}

// GetEventsByConversation returns copies of a conversation's events in insertion order.
func (m *MockStore) GetEventsByConversation(ctx context.Context, conversationID string, limit int) ([]*LedgerEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = clampLimit(limit)
	var out []*LedgerEvent
	for _, e := range m.events {
		if e.ConversationID != conversationID {
			continue
		}
		c := *e
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// ListConversations summarizes stored conversations, most recent first.
func (m *MockStore) ListConversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := make(map[string]*ConversationSummary)
	for _, e := range m.events {
		sum, ok := byID[e.ConversationID]
		if !ok {
			sum = &ConversationSummary{ConversationID: e.ConversationID, FirstSeen: e.Timestamp, LastSeen: e.Timestamp}
			byID[e.ConversationID] = sum
		}
		sum.Events++
		if e.Timestamp.Before(sum.FirstSeen) {
			sum.FirstSeen = e.Timestamp
		}
		if e.Timestamp.After(sum.LastSeen) {
			sum.LastSeen = e.Timestamp
		}
	}

	out := make([]ConversationSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})

	limit = clampLimit(limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events returns copies of every stored event.
func (m *MockStore) Events() []LedgerEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LedgerEvent, len(m.events))
	for i, e := range m.events {
		out[i] = *e
	}
	return out
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
