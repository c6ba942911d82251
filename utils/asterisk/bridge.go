package asterisk

import (
	"context"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/CyCoreSystems/ari/rid"
)

// CreateBridge creates a bridge of the given type and returns its id
func (c *Client) CreateBridge(ctx context.Context, callID string, bridgeType string, name string) (string, error) {
	id := rid.New(rid.Bridge)
	ymlogger.LogInfof(callID, "Creating [%s] bridge [%s] Name: [%s]", bridgeType, id, name)
	err := c.run(ctx, "create bridge", func() error {
		_, err := c.ari.Bridge().Create(bridgeKey(id), bridgeType, name)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddChannelToBridge adds the channel to the bridge
func (c *Client) AddChannelToBridge(ctx context.Context, callID string, bridgeID string, channelID string) error {
	ymlogger.LogDebugf(callID, "Adding channel [%s] to bridge [%s]", channelID, bridgeID)
	return c.run(ctx, "add channel to bridge", func() error {
		return c.ari.Bridge().AddChannel(bridgeKey(bridgeID), channelID)
	})
}

// DeleteBridge destroys the bridge
func (c *Client) DeleteBridge(ctx context.Context, callID string, bridgeID string) error {
	ymlogger.LogInfof(callID, "Deleting bridge [%s]", bridgeID)
	return c.run(ctx, "delete bridge", func() error {
		return c.ari.Bridge().Delete(bridgeKey(bridgeID))
	})
}
