package ratelimit

import (
	"sort"
	"sync"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// window is how long a latency sample counts towards the percentiles
const window = 5 * time.Minute

type latencyState struct {
	mu sync.Mutex

	threshold time.Duration
	fraction  float64
	samples   []sample
	name      string
}

type sample struct {
	at      time.Time
	latency time.Duration
}

func newLatencyState(threshold time.Duration, name string) *latencyState {
	return &latencyState{
		threshold: threshold,
		samples:   make([]sample, 0, 1000),
		fraction:  1,
		name:      name,
	}
}

// compact drops samples older than the window
func (s *latencyState) compact(now time.Time) {
	oldest := now.Add(-window)
	kept := make([]sample, 0, cap(s.samples))
	for _, e := range s.samples {
		if e.at.After(oldest) {
			kept = append(kept, e)
		}
	}
	if len(kept) == cap(kept) {
		ymlogger.LogWarningf(s.name, "Rate limiter could not drop any latency sample. Current size %d", len(kept))
	}
	s.samples = kept
}

// recompute picks the fraction of the max rate from where the threshold
// falls against p90 and p95:
//
//	p95 <= threshold        -> 1
//	p90 <= threshold < p95  -> 0.5
//	threshold < p90         -> 0.25
func (s *latencyState) recompute() {
	if len(s.samples) == 0 {
		return
	}
	sorted := make([]time.Duration, len(s.samples))
	for i, e := range s.samples {
		sorted[i] = e.latency
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p90 := sorted[int(0.9*float64(len(sorted)))]
	p95 := sorted[int(0.95*float64(len(sorted)))]

	switch {
	case p95 <= s.threshold:
		s.fraction = 1
	case p90 <= s.threshold:
		s.fraction = 0.5
	default:
		s.fraction = 0.25
	}
	ymlogger.LogDebugf(s.name, "Rate limit fraction=%.2f p95=%s p90=%s samples=%d threshold=%s",
		s.fraction, p95, p90, len(sorted), s.threshold)
}

func (s *latencyState) add(latency time.Duration, now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples)+1 > cap(s.samples) {
		s.compact(now)
	}
	s.samples = append(s.samples, sample{at: now, latency: latency})
	s.recompute()
	return s.fraction
}
