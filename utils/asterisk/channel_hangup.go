package asterisk

import (
	"context"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Hangup hangs up the channel with the given reason ("normal" when empty)
func (c *Client) Hangup(ctx context.Context, callID string, channelID string, reason string) error {
	if reason == "" {
		reason = "normal"
	}
	ymlogger.LogInfof(callID, "Hanging up the channel [%s] Reason: [%s]", channelID, reason)
	return c.run(ctx, "hangup", func() error {
		return c.ari.Channel().Hangup(channelKey(channelID), reason)
	})
}
