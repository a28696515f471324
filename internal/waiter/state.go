// ABOUTME: Poll cursor and bound destination shared by every wait in the process
// ABOUTME: Cursor only moves forward; a destination once bound is never replaced

package waiter

// State is the cursor/destination context threaded through WaitForReply.
// It is not safe for concurrent use; the command surface serialises
// every operation that touches it.
type State struct {
	cursor      int64
	destination int64
	bound       bool
}

// NewState returns a State starting at cursor. A non-zero destination is
// treated as pre-bound.
func NewState(cursor, destination int64) *State {
	s := &State{cursor: cursor}
	if destination != 0 {
		s.destination = destination
		s.bound = true
	}
	return s
}

// Cursor is the highest update id consumed so far.
func (s *State) Cursor() int64 {
	return s.cursor
}

// Advance moves the cursor to id if id is ahead of it.
func (s *State) Advance(id int64) {
	if id > s.cursor {
		s.cursor = id
	}
}

// Destination returns the bound chat id and whether one is bound.
func (s *State) Destination() (int64, bool) {
	return s.destination, s.bound
}

// Bind sets the destination if none is bound yet. It reports whether this
// call did the binding.
func (s *State) Bind(chatID int64) bool {
	if s.bound {
		return false
	}
	s.destination = chatID
	s.bound = true
	return true
}
