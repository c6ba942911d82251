package eventstream

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/gorilla/websocket"
)

// Options configures a Connector
type Options struct {
	// URL of the events endpoint, e.g. ws://localhost:8088/ari/events
	URL              string
	Application      string
	Username         string
	Password         string
	HandshakeTimeout time.Duration
}

// Connector owns the websocket to the ARI event feed
type Connector struct {
	opts   Options
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// New returns a Connector; nothing is dialled until Connect
func New(opts Options) *Connector {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Connector{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
}

func (c *Connector) endpoint() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("app", c.opts.Application)
	q.Set("api_key", c.opts.Username+":"+c.opts.Password)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the feed, replacing any previous connection
func (c *Connector) Connect(ctx context.Context) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return &ConnectionError{URL: c.opts.URL, Err: err}
	}
	header := http.Header{}
	req := &http.Request{Header: header}
	req.SetBasicAuth(c.opts.Username, c.opts.Password)

	ymlogger.LogInfof("EventStream", "Connecting to the event feed [%s] for application [%s]", c.opts.URL, c.opts.Application)
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		cerr := &ConnectionError{URL: c.opts.URL, Err: err}
		if resp != nil {
			cerr.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		return cerr
	}

	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	ymlogger.LogInfo("EventStream", "Connected to the event feed")
	return nil
}

// Next blocks until the next usable event. Malformed messages are logged and
// skipped. A clean close or a takeover of the application yields
// ErrStreamClosed, any other transport failure a *StreamError.
func (c *Connector) Next(ctx context.Context) (Event, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return Event{}, ErrNotConnected
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			c.drop(conn)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Event{}, ErrStreamClosed
			}
			return Event{}, &StreamError{Err: err}
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ev, err := Decode(data)
		if err != nil {
			var merr *MalformedEventError
			if errors.As(err, &merr) {
				ymlogger.LogWarningf("EventStream", "Skipping event. Error: [%s]", merr.Error())
				continue
			}
			return Event{}, &StreamError{Err: err}
		}
		if ev.Kind == KindApplicationReplaced {
			// Asterisk sends nothing more on this socket
			ymlogger.LogWarningf("EventStream", "Application [%s] was taken over by another connection", ev.Application)
			c.drop(conn)
			return Event{}, ErrStreamClosed
		}
		return ev, nil
	}
}

func (c *Connector) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// Close closes the current connection, if any
func (c *Connector) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}
