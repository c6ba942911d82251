package callstore

import "sync"

// Action is the collaborator whose latency is being recorded
type Action int

const (
	STTResponseTimeinMs Action = iota
	LLMResponseTimeinMs
	TTSResponseTimeinMs
)

// LatencyParameter holds the collaborator latencies of one turn
type LatencyParameter struct {
	Turn         int   `json:"turn"`
	STTLatencyMs int64 `json:"speech_to_text"`
	LLMLatencyMs int64 `json:"language_model"`
	TTSLatencyMs int64 `json:"text_to_speech"`
}

// LatencyStore keeps per turn latencies for a call
type LatencyStore struct {
	mu            sync.Mutex
	latencyparams []LatencyParameter
}

// AddNewTurn opens a new turn entry; later RecordLatency calls land on it
func (l *LatencyStore) AddNewTurn() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	turn := len(l.latencyparams) + 1
	l.latencyparams = append(l.latencyparams, LatencyParameter{Turn: turn})
	return turn
}

// RecordLatency sets the latency of action on the latest turn
func (l *LatencyStore) RecordLatency(action Action, responseTimeMs int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.latencyparams) == 0 {
		return false
	}
	last := &l.latencyparams[len(l.latencyparams)-1]
	switch action {
	case STTResponseTimeinMs:
		last.STTLatencyMs = responseTimeMs
	case LLMResponseTimeinMs:
		last.LLMLatencyMs = responseTimeMs
	case TTSResponseTimeinMs:
		last.TTSLatencyMs = responseTimeMs
	default:
		return false
	}
	return true
}

// GetLatencies returns a copy of the recorded latencies
func (l *LatencyStore) GetLatencies() []LatencyParameter {
	l.mu.Lock()
	defer l.mu.Unlock()
	paramList := make([]LatencyParameter, len(l.latencyparams))
	copy(paramList, l.latencyparams)
	return paramList
}
