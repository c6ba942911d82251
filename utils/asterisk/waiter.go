package asterisk

import "sync"

// Completion is the outcome of a playback or a recording
type Completion struct {
	ID              string
	Failed          bool
	Cause           string
	Duration        int
	TalkingDuration int
}

// Waiters hands playback and recording completions from the event loop to
// the call task waiting on them
type Waiters struct {
	mu      sync.Mutex
	pending map[string]chan Completion
}

// NewWaiters returns an empty set of waiters
func NewWaiters() *Waiters {
	return &Waiters{pending: make(map[string]chan Completion)}
}

// Expect registers interest in id. The returned channel receives exactly one
// completion. Call Forget when giving up.
func (w *Waiters) Expect(id string) <-chan Completion {
	ch := make(chan Completion, 1)
	w.mu.Lock()
	w.pending[id] = ch
	w.mu.Unlock()
	return ch
}

// Notify delivers c to the waiter of c.ID. It returns false when nobody waits.
func (w *Waiters) Notify(c Completion) bool {
	w.mu.Lock()
	ch, ok := w.pending[c.ID]
	delete(w.pending, c.ID)
	w.mu.Unlock()
	if !ok {
		return false
	}
	ch <- c
	return true
}

// Forget drops the waiter of id
func (w *Waiters) Forget(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

// Len returns the number of outstanding waiters
func (w *Waiters) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
