package asterisk

import (
	"context"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/CyCoreSystems/ari"
)

// ListApplications returns the names of the Stasis applications registered
// with Asterisk
func (c *Client) ListApplications(ctx context.Context) ([]string, error) {
	var keys []*ari.Key
	err := c.run(ctx, "list applications", func() error {
		var err error
		keys, err = c.ari.Application().List(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.ID)
	}
	return names, nil
}

// IsRegistered reports whether app is among the registered applications
func (c *Client) IsRegistered(ctx context.Context, app string) (bool, error) {
	names, err := c.ListApplications(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == app {
			return true, nil
		}
	}
	return false, nil
}

// Ping checks that the control plane answers
func (c *Client) Ping(ctx context.Context) error {
	err := c.run(ctx, "asterisk info", func() error {
		_, err := c.ari.Asterisk().Info(nil)
		return err
	})
	if err != nil {
		ymlogger.LogErrorf("ARIHealth", "Error while pinging Asterisk. Error: [%#v]", err)
	}
	return err
}
