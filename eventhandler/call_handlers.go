package eventhandler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/globals"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
)

const (
	BridgeModeExternalMedia = "external_media"
	BridgeModeSimulated     = "simulated"
)

// Control is the call-control command surface the state machine drives
type Control interface {
	Answer(ctx context.Context, callID string, channelID string) error
	Hangup(ctx context.Context, callID string, channelID string, reason string) error
	CreateBridge(ctx context.Context, callID string, bridgeType string, name string) (string, error)
	AddChannelToBridge(ctx context.Context, callID string, bridgeID string, channelID string) error
	DeleteBridge(ctx context.Context, callID string, bridgeID string) error
	CreateExternalMedia(ctx context.Context, callID string, channelID string, host string, format string) error
	Ping(ctx context.Context) error
}

// Conversation runs the dialogue of a bridged call
type Conversation interface {
	Greet(ctx context.Context, callID string) error
	Run(ctx context.Context, callID string) call.EndReason
	Farewell(ctx context.Context, callID string) error
}

// EventSource is a reconnectable event feed
type EventSource interface {
	Connect(ctx context.Context) error
	Next(ctx context.Context) (eventstream.Event, error)
	Close() error
}

// Config holds the orchestrator timings and media settings
type Config struct {
	ReconnectDelay      time.Duration
	CleanupTimeout      time.Duration
	HealthPing          time.Duration
	BridgeMode          string
	ExternalMediaHost   string
	ExternalMediaFormat string
	DefaultRegion       string
}

// CallHandlers is the call state machine: it consumes the event feed, owns
// one task per call and tears calls down
type CallHandlers struct {
	conf      Config
	registry  *call.Registry
	control   Control
	conv      Conversation
	waiters   *asterisk.Waiters
	sink      callstore.Sink
	connected atomic.Bool
	tasks     sync.WaitGroup
	now       func() time.Time
}

// NewCallHandlers wires the state machine. sink may be nil.
func NewCallHandlers(
	conf Config,
	registry *call.Registry,
	control Control,
	conv Conversation,
	waiters *asterisk.Waiters,
	sink callstore.Sink,
) *CallHandlers {
	if conf.ReconnectDelay <= 0 {
		conf.ReconnectDelay = 5 * time.Second
	}
	if conf.CleanupTimeout <= 0 {
		conf.CleanupTimeout = 15 * time.Second
	}
	if conf.BridgeMode == "" {
		conf.BridgeMode = BridgeModeExternalMedia
	}
	return &CallHandlers{
		conf:     conf,
		registry: registry,
		control:  control,
		conv:     conv,
		waiters:  waiters,
		sink:     sink,
		now:      time.Now,
	}
}

// Status is the read-only view served by the health endpoint
type Status struct {
	call.Counts
	Connected     bool  `json:"event_stream_connected"`
	Reconnects    int32 `json:"reconnects"`
	DroppedEvents int32 `json:"dropped_events"`
}

// Status returns the current counts
func (cH *CallHandlers) Status() Status {
	return Status{
		Counts:        cH.registry.Counts(),
		Connected:     cH.connected.Load(),
		Reconnects:    globals.GetReconnects(),
		DroppedEvents: globals.GetDroppedEvents(),
	}
}
