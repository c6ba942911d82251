package asterisk

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/CyCoreSystems/ari"
)

// ErrTimeout is the cause of a CommandError for a command that did not
// complete within the command timeout
var ErrTimeout = errors.New("command timed out")

// CommandError is a failed control command
type CommandError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *CommandError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Options configures the control client
type Options struct {
	URL            string
	Username       string
	Password       string
	Application    string
	CommandTimeout time.Duration
}

// Client issues call control commands. Channel and bridge commands go
// through the ARI library, the endpoints it does not cover go over REST.
type Client struct {
	ari     ari.Client
	opts    Options
	http    *http.Client
	timeout time.Duration
}

// NewClient wraps an ARI client
func NewClient(ariClient ari.Client, opts Options) *Client {
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		ari:  ariClient,
		opts: opts,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
				TLSHandshakeTimeout: 3 * time.Second,
				MaxIdleConnsPerHost: 20,
			},
		},
		timeout: timeout,
	}
}

// run executes fn and gives up after the command timeout. The library calls
// take no context, so a timed out call keeps running in the background.
func (c *Client) run(ctx context.Context, op string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		if err != nil {
			return &CommandError{Op: op, Err: err}
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &CommandError{Op: op, Err: ErrTimeout}
		}
		return &CommandError{Op: op, Err: ctx.Err()}
	}
}

func channelKey(id string) *ari.Key {
	return ari.NewKey(ari.ChannelKey, id)
}

func bridgeKey(id string) *ari.Key {
	return ari.NewKey(ari.BridgeKey, id)
}
