package request

import (
	"context"
	"sync"

	"github.com/josephgoksu/concierge/internal/task"
)

// Pending is a submission that has been validated and is being delivered.
type Pending struct {
	CategoryID string
	Payload    task.Payload
}

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	SelectedCategoryID   string
	IsCustomFormCategory bool
	Pending              *Pending
	WaitingTaskID        int64 // 0 when not waiting
	RetryCount           int
}

// Session tracks the request being built on one orchestrator. Zero value is
// an empty session.
type Session struct {
	mu    sync.Mutex
	state SessionState
}

// Snapshot copies the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Pending != nil {
		p := *st.Pending
		st.Pending = &p
	}
	return st
}

// SelectCategory records the active category and whether it has a custom form.
func (s *Session) SelectCategory(id string, custom bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedCategoryID = id
	s.state.IsCustomFormCategory = custom
}

// SetPendingIfAbsent stores p unless a submission is already pending.
func (s *Session) SetPendingIfAbsent(p Pending) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Pending != nil {
		return false
	}
	s.state.Pending = &p
	return true
}

// HasPending reports whether a submission is pending.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Pending != nil
}

// SetWaitingTaskIfAbsent records the task id to watch for, unless one is set
// or ctx is done. Cancellers cancel ctx before ClearSubmission, so a cancelled
// submission can never write an id after the session was cleared.
func (s *Session) SetWaitingTaskIfAbsent(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.WaitingTaskID != 0 || ctx.Err() != nil {
		return false
	}
	s.state.WaitingTaskID = id
	s.state.RetryCount = 0
	return true
}

// WaitingTaskID returns the watched task id.
func (s *Session) WaitingTaskID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.WaitingTaskID, s.state.WaitingTaskID != 0
}

// IncrementRetry bumps and returns the retry count.
func (s *Session) IncrementRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RetryCount++
	return s.state.RetryCount
}

// ClearSubmission drops pending, waiting and retry state but keeps the category.
func (s *Session) ClearSubmission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pending = nil
	s.state.WaitingTaskID = 0
	s.state.RetryCount = 0
}

// Reset empties the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{}
}
