package asterisk

import (
	"context"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	guuid "github.com/google/uuid"
)

// NewPlaybackID returns a fresh playback id. Register a waiter for it before
// starting the playback so the finish event can not be missed.
func NewPlaybackID() string {
	return guuid.New().String()
}

// PlayOnBridge starts playing mediaRef (e.g. sound:goodbye) to every member
// of the bridge
func (c *Client) PlayOnBridge(ctx context.Context, callID string, bridgeID string, playbackID string, mediaRef string) error {
	ymlogger.LogInfof(callID, "Running Play on bridge: [%s] Media: [%s] Playback: [%s]", bridgeID, mediaRef, playbackID)
	return c.run(ctx, "play", func() error {
		_, err := c.ari.Bridge().Play(bridgeKey(bridgeID), playbackID, mediaRef)
		return err
	})
}

// PlayOnChannel starts playing mediaRef on a single channel
func (c *Client) PlayOnChannel(ctx context.Context, callID string, channelID string, playbackID string, mediaRef string) error {
	ymlogger.LogInfof(callID, "Running Play on channel: [%s] Media: [%s] Playback: [%s]", channelID, mediaRef, playbackID)
	return c.run(ctx, "play", func() error {
		_, err := c.ari.Channel().Play(channelKey(channelID), playbackID, mediaRef)
		return err
	})
}
