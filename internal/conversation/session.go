// ABOUTME: Session and turn types plus the errors the manager returns
// ABOUTME: Sessions are owned by the Manager; callers only ever see copies

package conversation

import (
	"errors"
	"fmt"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerUser  Speaker = "user"
)

// Turn is one entry in a session's history.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Session is the state of one relayed conversation.
type Session struct {
	ID        string
	History   []Turn
	StartTime time.Time
	Active    bool
}

func (s *Session) clone() Session {
	c := *s
	c.History = append([]Turn(nil), s.History...)
	return c
}

// UnknownConversationError is returned for ids that are missing or no
// longer active.
type UnknownConversationError struct {
	ID string
}

func (e *UnknownConversationError) Error() string {
	return fmt.Sprintf("unknown conversation: %s", e.ID)
}

// ErrNoDestination means a send was attempted before any chat was bound.
var ErrNoDestination = errors.New("no destination chat bound")
