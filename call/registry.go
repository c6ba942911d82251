package call

import (
	"sync"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Counts is a snapshot of the registry sizes
type Counts struct {
	Calls    int `json:"active_calls"`
	Channels int `json:"channels"`
	Bridges  int `json:"bridges"`
}

// Registry owns every Channel, Bridge and Session record of the process.
// One mutex guards the whole registry.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	bridges  map[string]*Bridge
	sessions map[string]*Session
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
		bridges:  make(map[string]*Bridge),
		sessions: make(map[string]*Session),
	}
}

// UpsertChannel creates the channel or merges the non-zero fields of ch into it
func (r *Registry) UpsertChannel(ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.channels[ch.ID]
	if !ok {
		c := ch
		r.channels[ch.ID] = &c
		return c
	}
	existing.merge(ch)
	return *existing
}

// SetChannelState updates the stored platform state of a known channel
func (r *Registry) SetChannelState(id, state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return false
	}
	ch.State = state
	return true
}

// GetChannel returns a copy of the channel
func (r *Registry) GetChannel(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	if !ok {
		return Channel{}, false
	}
	return *ch, true
}

// RemoveChannel deletes the channel. Removing an unknown id is a no-op.
func (r *Registry) RemoveChannel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return false
	}
	delete(r.channels, id)
	return true
}

// PutBridge stores the bridge, replacing any bridge with the same id
func (r *Registry) PutBridge(b Bridge) {
	c := b.clone()
	r.mu.Lock()
	r.bridges[b.ID] = &c
	r.mu.Unlock()
}

// AddBridgeMember records channelID as a member of the bridge
func (r *Registry) AddBridgeMember(bridgeID, channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bridges[bridgeID]
	if !ok {
		return false
	}
	b.members[channelID] = struct{}{}
	return true
}

// GetBridge returns a copy of the bridge
func (r *Registry) GetBridge(id string) (Bridge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bridges[id]
	if !ok {
		return Bridge{}, false
	}
	return b.clone(), true
}

// RemoveBridge deletes the bridge. Removing an unknown id is a no-op.
func (r *Registry) RemoveBridge(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bridges[id]; !ok {
		return false
	}
	delete(r.bridges, id)
	return true
}

// PutSession stores s under its call id and returns the session it displaced
func (r *Registry) PutSession(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[s.CallID]
	r.sessions[s.CallID] = s
	if prev != nil && prev != s {
		ymlogger.LogWarningf(s.CallID, "Replacing the stale session of reused channel id [%s]", s.CallID)
		return prev
	}
	return nil
}

// GetSession returns the session of a call
func (r *Registry) GetSession(callID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[callID]
	return s, ok
}

// RemoveSession deletes s if it is still the session stored for its call id.
// A second removal, or removal of a displaced session, is a no-op.
func (r *Registry) RemoveSession(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.CallID]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.CallID)
	return true
}

// Sessions returns every stored session
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Counts returns the number of calls, channels and bridges
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Counts{Calls: len(r.sessions), Channels: len(r.channels), Bridges: len(r.bridges)}
}

// Clear drops every record
func (r *Registry) Clear() {
	r.mu.Lock()
	r.channels = make(map[string]*Channel)
	r.bridges = make(map[string]*Bridge)
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
}
