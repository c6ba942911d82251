package call

import (
	"sort"
	"time"
)

// Channel is one leg of a call at the telephony platform
type Channel struct {
	ID           string
	Name         string
	CallerNumber string
	State        string
	CreatedAt    time.Time
	SessionID    string
	Role         ChannelRole
}

// merge copies the non-zero fields of update onto c
func (c *Channel) merge(update Channel) {
	if update.Name != "" {
		c.Name = update.Name
	}
	if update.CallerNumber != "" {
		c.CallerNumber = update.CallerNumber
	}
	if update.State != "" {
		c.State = update.State
	}
	if !update.CreatedAt.IsZero() {
		c.CreatedAt = update.CreatedAt
	}
	if update.SessionID != "" {
		c.SessionID = update.SessionID
	}
	if update.Role != 0 {
		c.Role = update.Role
	}
}

// Bridge mixes media between its member channels
type Bridge struct {
	ID        string
	Name      string
	Type      string
	SessionID string
	members   map[string]struct{}
}

// NewBridge returns a bridge with the given members
func NewBridge(id, name, bridgeType, sessionID string, members ...string) Bridge {
	b := Bridge{ID: id, Name: name, Type: bridgeType, SessionID: sessionID, members: map[string]struct{}{}}
	for _, m := range members {
		b.members[m] = struct{}{}
	}
	return b
}

// Members returns the member channel ids in sorted order
func (b Bridge) Members() []string {
	out := make([]string, 0, len(b.members))
	for id := range b.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// HasMember reports whether channelID is in the bridge
func (b Bridge) HasMember(channelID string) bool {
	_, ok := b.members[channelID]
	return ok
}

func (b Bridge) clone() Bridge {
	c := b
	c.members = make(map[string]struct{}, len(b.members))
	for id := range b.members {
		c.members[id] = struct{}{}
	}
	return c
}
