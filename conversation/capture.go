package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/helper"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// ErrCaptureTimeout is returned when Asterisk never reported the end of a recording
var ErrCaptureTimeout = errors.New("recording did not finish in time")

// Recorder is the part of the ARI client a RecordingCapture needs
type Recorder interface {
	RecordBridge(ctx context.Context, callID string, bridgeID string, name string, opts asterisk.RecordingOptions) error
	FetchStoredRecording(ctx context.Context, callID string, name string) ([]byte, error)
	DeleteStoredRecording(ctx context.Context, callID string, name string) error
}

// RecordingCapture captures an utterance by recording the bridge until the
// caller falls silent and fetching the stored file
type RecordingCapture struct {
	rec     Recorder
	waiters *asterisk.Waiters
	opts    asterisk.RecordingOptions
	slack   time.Duration
}

// NewRecordingCapture returns a RecordingCapture. Recording completions must
// be fed to waiters by whoever reads the event stream.
func NewRecordingCapture(rec Recorder, waiters *asterisk.Waiters, opts asterisk.RecordingOptions) *RecordingCapture {
	return &RecordingCapture{rec: rec, waiters: waiters, opts: opts, slack: 10 * time.Second}
}

// Capture records one utterance
func (c *RecordingCapture) Capture(ctx context.Context, callID string, bridgeID string) (*Utterance, error) {
	if bridgeID == "" {
		return nil, errors.New("call has no bridge to record")
	}
	name := asterisk.NewRecordingName()
	done := c.waiters.Expect(name)
	defer c.waiters.Forget(name)

	if err := c.rec.RecordBridge(ctx, callID, bridgeID, name, c.opts); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.opts.MaxDuration + c.opts.MaxSilence + c.slack)
	defer timer.Stop()
	var comp asterisk.Completion
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrCaptureTimeout
	case comp = <-done:
	}
	if comp.Failed {
		return nil, fmt.Errorf("recording %s failed: %s", name, comp.Cause)
	}
	defer func() {
		if err := c.rec.DeleteStoredRecording(context.WithoutCancel(ctx), callID, name); err != nil {
			ymlogger.LogWarningf(callID, "Unable to delete stored recording [%s]. Error: [%#v]", name, err)
		}
	}()
	if comp.TalkingDuration == 0 {
		return nil, ErrNoSpeech
	}

	data, err := c.rec.FetchStoredRecording(ctx, callID, name)
	if err != nil {
		return nil, err
	}
	u := &Utterance{Name: name, Audio: data, Duration: time.Duration(comp.Duration) * time.Second}
	if c.opts.Format == "" || c.opts.Format == "wav" {
		info, err := helper.InspectWAV(data)
		if err != nil {
			return nil, fmt.Errorf("recording %s: %w", name, err)
		}
		if info.Duration == 0 {
			return nil, ErrNoSpeech
		}
		u.Duration = info.Duration
		u.SampleRate = info.SampleRate
	}
	ymlogger.LogDebugf(callID, "Captured utterance [%s] of [%s]", name, u.Duration)
	return u, nil
}

// BridgePlayer is the part of the ARI client a PlaybackPlayer needs
type BridgePlayer interface {
	PlayOnBridge(ctx context.Context, callID string, bridgeID string, playbackID string, mediaRef string) error
}

// PlaybackPlayer plays media on a bridge and waits for PlaybackFinished
type PlaybackPlayer struct {
	client  BridgePlayer
	waiters *asterisk.Waiters
	maxWait time.Duration
}

// NewPlaybackPlayer returns a PlaybackPlayer. A playback that is not reported
// finished within maxWait is assumed done.
func NewPlaybackPlayer(client BridgePlayer, waiters *asterisk.Waiters, maxWait time.Duration) *PlaybackPlayer {
	return &PlaybackPlayer{client: client, waiters: waiters, maxWait: maxWait}
}

// Play starts the playback and blocks until it finished. A playback Asterisk
// reports as failed is an error.
func (p *PlaybackPlayer) Play(ctx context.Context, callID string, bridgeID string, mediaRef string) error {
	if bridgeID == "" {
		return errors.New("call has no bridge to play on")
	}
	id := asterisk.NewPlaybackID()
	done := p.waiters.Expect(id)
	defer p.waiters.Forget(id)

	if err := p.client.PlayOnBridge(ctx, callID, bridgeID, id, mediaRef); err != nil {
		return err
	}
	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		ymlogger.LogWarningf(callID, "Playback [%s] of [%s] not reported finished after [%s]", id, mediaRef, p.maxWait)
		return nil
	case comp := <-done:
		if comp.Failed {
			return fmt.Errorf("playback %s of %s failed", id, mediaRef)
		}
		return nil
	}
}
