package callstore

import (
	"sync"
	"time"
)

// Role identifies who produced a turn
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Turn is one transcript entry
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the append-only conversation log of one call
type Transcript struct {
	mu    sync.Mutex
	turns []Turn
}

// Append adds a turn and returns it. Empty text is ignored.
func (t *Transcript) Append(role Role, text string, at time.Time) (Turn, bool) {
	if text == "" {
		return Turn{}, false
	}
	turn := Turn{Role: role, Text: text, Timestamp: at}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn, true
}

// Turns returns a copy of every turn
func (t *Transcript) Turns() []Turn {
	return t.Recent(0)
}

// Recent returns a copy of the last n turns, or all of them when n <= 0
func (t *Transcript) Recent(n int) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := 0
	if n > 0 && len(t.turns) > n {
		start = len(t.turns) - n
	}
	out := make([]Turn, len(t.turns)-start)
	copy(out, t.turns[start:])
	return out
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}
