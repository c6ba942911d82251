package eventstream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of event kinds the orchestrator understands
type Kind int

const (
	KindUnknown Kind = iota
	KindCallStarted
	KindCallEnded
	KindHangupRequested
	KindChannelStateChanged
	KindRecordingFinished
	KindRecordingFailed
	KindPlaybackFinished
	// KindApplicationReplaced means another connection took the application over
	KindApplicationReplaced
)

func (k Kind) String() string {
	switch k {
	case KindCallStarted:
		return "call-started"
	case KindCallEnded:
		return "call-ended"
	case KindHangupRequested:
		return "hangup-requested"
	case KindChannelStateChanged:
		return "channel-state-changed"
	case KindRecordingFinished:
		return "recording-finished"
	case KindRecordingFailed:
		return "recording-failed"
	case KindPlaybackFinished:
		return "playback-finished"
	case KindApplicationReplaced:
		return "application-replaced"
	}
	return "unknown"
}

// kinds maps both the ARI event names and the generic names to a Kind
var kinds = map[string]Kind{
	"StasisStart":           KindCallStarted,
	"call-started":          KindCallStarted,
	"StasisEnd":             KindCallEnded,
	"ChannelDestroyed":      KindCallEnded,
	"call-ended":            KindCallEnded,
	"ChannelHangupRequest":  KindHangupRequested,
	"hangup-requested":      KindHangupRequested,
	"ChannelStateChange":    KindChannelStateChanged,
	"channel-state-changed": KindChannelStateChanged,
	"RecordingFinished":     KindRecordingFinished,
	"RecordingFailed":       KindRecordingFailed,
	"PlaybackFinished":      KindPlaybackFinished,
	"ApplicationReplaced":   KindApplicationReplaced,
}

// KindOf returns the Kind of an event type discriminator
func KindOf(eventType string) Kind {
	return kinds[eventType]
}

// CallerID is the calling party of a channel
type CallerID struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Channel is the channel payload carried by channel events
type Channel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	State        string   `json:"state"`
	Caller       CallerID `json:"caller"`
	CreationTime string   `json:"creationtime"`
}

// Recording is the payload of recording events
type Recording struct {
	Name            string `json:"name"`
	Format          string `json:"format"`
	TargetURI       string `json:"target_uri"`
	State           string `json:"state"`
	Duration        int    `json:"duration"`
	TalkingDuration int    `json:"talking_duration"`
	SilenceDuration int    `json:"silence_duration"`
	Cause           string `json:"cause"`
}

// Playback is the payload of playback events
type Playback struct {
	ID        string `json:"id"`
	MediaURI  string `json:"media_uri"`
	TargetURI string `json:"target_uri"`
	State     string `json:"state"`
}

// Event is one decoded message of the event feed
type Event struct {
	Kind        Kind       `json:"-"`
	Type        string     `json:"type"`
	Timestamp   string     `json:"timestamp"`
	Application string     `json:"application"`
	Channel     *Channel   `json:"channel"`
	Cause       int        `json:"cause"`
	CauseText   string     `json:"cause_txt"`
	Recording   *Recording `json:"recording"`
	Playback    *Playback  `json:"playback"`
}

// ChannelID returns the id of the carried channel, or ""
func (e Event) ChannelID() string {
	if e.Channel == nil {
		return ""
	}
	return e.Channel.ID
}

// Time parses the event timestamp. ARI omits the colon in the zone offset.
func (e Event) Time() time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339Nano} {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MalformedEventError is returned by Decode for payloads that can't be used
type MalformedEventError struct {
	Payload string
	Reason  string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event (%s): %s", e.Reason, e.Payload)
}

// Decode parses one message of the feed
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, &MalformedEventError{Payload: truncate(data), Reason: err.Error()}
	}
	if strings.TrimSpace(ev.Type) == "" {
		return Event{}, &MalformedEventError{Payload: truncate(data), Reason: "missing type"}
	}
	ev.Kind = KindOf(ev.Type)
	switch ev.Kind {
	case KindCallStarted, KindCallEnded, KindHangupRequested, KindChannelStateChanged:
		if ev.ChannelID() == "" {
			return Event{}, &MalformedEventError{Payload: truncate(data), Reason: "missing channel id"}
		}
	case KindRecordingFinished, KindRecordingFailed:
		if ev.Recording == nil || ev.Recording.Name == "" {
			return Event{}, &MalformedEventError{Payload: truncate(data), Reason: "missing recording name"}
		}
	case KindPlaybackFinished:
		if ev.Playback == nil || ev.Playback.ID == "" {
			return Event{}, &MalformedEventError{Payload: truncate(data), Reason: "missing playback id"}
		}
	}
	return ev, nil
}

func truncate(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
