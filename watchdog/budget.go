package watchdog

import (
	"sync"
	"time"
)

// RestartBudget allows at most max restarts within any rolling window
type RestartBudget struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	restarts []time.Time
	now      func() time.Time
}

// NewRestartBudget returns an empty budget
func NewRestartBudget(max int, window time.Duration) *RestartBudget {
	return &RestartBudget{max: max, window: window, now: time.Now}
}

// Take spends one restart if the window has room and reports whether it did
func (b *RestartBudget) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.prune(now)
	if len(b.restarts) >= b.max {
		return false
	}
	b.restarts = append(b.restarts, now)
	return true
}

// Remaining returns the restarts left in the current window
func (b *RestartBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.now())
	return b.max - len(b.restarts)
}

// NextAllowed returns when the oldest restart leaves the window
func (b *RestartBudget) NextAllowed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.restarts) == 0 {
		return b.now()
	}
	return b.restarts[0].Add(b.window)
}

func (b *RestartBudget) prune(now time.Time) {
	keep := b.restarts[:0]
	for _, at := range b.restarts {
		if now.Sub(at) < b.window {
			keep = append(keep, at)
		}
	}
	b.restarts = keep
}
