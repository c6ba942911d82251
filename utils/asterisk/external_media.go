package asterisk

import (
	"context"
	"net/http"
	"net/url"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// CreateExternalMedia creates an external media channel with the given id
// that streams the bridge audio to host (ip:port) in format
func (c *Client) CreateExternalMedia(ctx context.Context, callID string, channelID string, host string, format string) error {
	ymlogger.LogInfof(callID, "Creating external media channel [%s] Host: [%s] Format: [%s]", channelID, host, format)
	q := url.Values{}
	q.Set("app", c.opts.Application)
	q.Set("external_host", host)
	q.Set("format", format)
	q.Set("channelId", channelID)
	_, err := c.doREST(ctx, "external media", http.MethodPost, "/channels/externalMedia", q, nil)
	return err
}
