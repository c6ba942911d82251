package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
)

// Session is the tracked unit of work for one phone call. The call id is the
// originating channel id.
type Session struct {
	CallID     string
	Caller     string
	CallerE164 string
	StartedAt  time.Time
	Transcript callstore.Transcript
	Latencies  callstore.LatencyStore

	mu             sync.Mutex
	state          State
	lastActivity   time.Time
	bridgeID       string
	mediaChannelID string
	endReason      EndReason
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewSession returns a session in the given initial state
func NewSession(callID, caller string, initial State, now time.Time) *Session {
	return &Session{
		CallID:       callID,
		Caller:       caller,
		StartedAt:    now,
		state:        initial,
		lastActivity: now,
		done:         make(chan struct{}),
	}
}

// Start derives the task context owned by this session
func (s *Session) Start(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	reason := s.endReason
	s.mu.Unlock()
	if reason != EndReasonNone {
		cancel()
	}
	return ctx
}

// Finish marks the task as returned. Call once, from the task.
func (s *Session) Finish() {
	close(s.done)
}

// Done is closed once the session task has returned
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// RequestEnd records the first end reason and cancels the task. It returns
// false when a reason had already been recorded.
func (s *Session) RequestEnd(reason EndReason) bool {
	s.mu.Lock()
	first := s.endReason == EndReasonNone
	if first {
		s.endReason = reason
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return first
}

// EndReason returns the recorded end reason
func (s *Session) EndReason() EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReason
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to the given state
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.state, to) {
		return fmt.Errorf("illegal transition %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}

// Touch updates the last activity timestamp
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
	s.mu.Unlock()
}

// LastActivity returns the last activity timestamp
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SetMedia records the bridge and the external media channel of the call
func (s *Session) SetMedia(bridgeID, mediaChannelID string) {
	s.mu.Lock()
	s.bridgeID = bridgeID
	s.mediaChannelID = mediaChannelID
	s.mu.Unlock()
}

// Media returns the bridge id and external media channel id, both possibly empty
func (s *Session) Media() (bridgeID, mediaChannelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridgeID, s.mediaChannelID
}
