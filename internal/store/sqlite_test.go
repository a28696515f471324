// ABOUTME: Tests for the SQLite ledger
// ABOUTME: Verifies schema creation, event round trips, ordering, and conversation summaries

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesParentDirs(t *testing.T) {
	s := createTestStore(t)
	assert.NotNil(t, s.db)
}

func TestSaveEvent_GeneratesIDAndTimestamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	event := &LedgerEvent{
		ConversationID: "conv-1",
		Kind:           EventKindMessage,
		Speaker:        SpeakerAgent,
		Text:           "hello",
	}
	require.NoError(t, s.SaveEvent(ctx, event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	events, err := s.GetEventsByConversation(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, "hello", events[0].Text)
	assert.Equal(t, SpeakerAgent, events[0].Speaker)
	assert.Equal(t, EventKindMessage, events[0].Kind)
	assert.True(t, event.Timestamp.Equal(events[0].Timestamp))
}

func TestGetEventsByConversation_OrderedAndScoped(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Insert out of order; whole-second and fractional stamps must still sort.
	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{ConversationID: "a", Kind: EventKindReply, Speaker: SpeakerUser, Text: "second", Timestamp: base.Add(500 * time.Millisecond)}))
	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{ConversationID: "a", Kind: EventKindMessage, Speaker: SpeakerAgent, Text: "first", Timestamp: base}))
	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{ConversationID: "b", Kind: EventKindMessage, Speaker: SpeakerAgent, Text: "other", Timestamp: base}))

	events, err := s.GetEventsByConversation(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Text)
	assert.Equal(t, "second", events[1].Text)

	limited, err := s.GetEventsByConversation(ctx, "a", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetEventsByConversation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetEventsByConversation(context.Background(), "missing", 10)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveEvent_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)

	err := s.SaveEvent(context.Background(), &LedgerEvent{
		ConversationID: "conv-1",
		Kind:           EventKind("bogus"),
		Speaker:        SpeakerAgent,
		Text:           "x",
	})
	assert.Error(t, err)
}

func TestListConversations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{ConversationID: "old", Kind: EventKindMessage, Speaker: SpeakerAgent, Text: "1", Timestamp: base}))
	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{ConversationID: "old", Kind: EventKindReply, Speaker: SpeakerUser, Text: "2", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.SaveEvent(ctx, &LedgerEvent{ConversationID: "new", Kind: EventKindMessage, Speaker: SpeakerAgent, Text: "3", Timestamp: base.Add(time.Hour)}))

	convs, err := s.ListConversations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, "new", convs[0].ConversationID)
	assert.Equal(t, 1, convs[0].Events)
	assert.Equal(t, "old", convs[1].ConversationID)
	assert.Equal(t, 2, convs[1].Events)
	assert.True(t, convs[1].FirstSeen.Equal(base))
	assert.True(t, convs[1].LastSeen.Equal(base.Add(time.Minute)))
}

func TestMockStore(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.SaveEvent(ctx, &LedgerEvent{ConversationID: "c", Kind: EventKindMessage, Speaker: SpeakerAgent, Text: "hi"}))
	events, err := m.GetEventsByConversation(ctx, "c", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = m.GetEventsByConversation(ctx, "nope", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("disk full")
	m.FailWith(boom)
	assert.ErrorIs(t, m.SaveEvent(ctx, &LedgerEvent{ConversationID: "c"}), boom)
	assert.Len(t, m.Events(), 1)
}
