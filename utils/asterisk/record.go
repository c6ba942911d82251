package asterisk

import (
	"context"
	"net/url"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/CyCoreSystems/ari"
	"github.com/google/uuid"
)

// RecordingOptions are the per utterance recording limits
type RecordingOptions struct {
	Format      string
	MaxDuration time.Duration
	MaxSilence  time.Duration
	Terminate   string
	Beep        bool
}

// NewRecordingName returns a fresh recording name
func NewRecordingName() string {
	return uuid.New().String()
}

// RecordBridge starts recording the bridge mix under name
func (c *Client) RecordBridge(ctx context.Context, callID string, bridgeID string, name string, opts RecordingOptions) error {
	ymlogger.LogInfof(callID, "Going to record the bridge [%s] Recording: [%s]", bridgeID, name)
	return c.run(ctx, "record", func() error {
		_, err := c.ari.Bridge().Record(bridgeKey(bridgeID), name, &ari.RecordingOptions{
			Format:      opts.Format,
			MaxDuration: opts.MaxDuration,
			MaxSilence:  opts.MaxSilence,
			Exists:      "overwrite",
			Beep:        opts.Beep,
			Terminate:   opts.Terminate,
		})
		return err
	})
}

// FetchStoredRecording downloads the audio of a finished recording. The
// library only exposes the recording metadata, so the file goes over REST.
func (c *Client) FetchStoredRecording(ctx context.Context, callID string, name string) ([]byte, error) {
	ymlogger.LogDebugf(callID, "Fetching stored recording [%s]", name)
	return c.doREST(ctx, "fetch recording", "GET", "/recordings/stored/"+url.PathEscape(name)+"/file", nil, nil)
}

// DeleteStoredRecording removes a stored recording
func (c *Client) DeleteStoredRecording(ctx context.Context, callID string, name string) error {
	return c.run(ctx, "delete recording", func() error {
		return c.ari.StoredRecording().Delete(ari.NewKey(ari.StoredRecordingKey, name))
	})
}
