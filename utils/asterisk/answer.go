package asterisk

import (
	"context"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Answer answers the channel
func (c *Client) Answer(ctx context.Context, callID string, channelID string) error {
	ymlogger.LogInfof(callID, "Going to answer the call. Channel ID: [%s]", channelID)
	return c.run(ctx, "answer", func() error {
		return c.ari.Channel().Answer(channelKey(channelID))
	})
}
