package eventstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamClosed is returned by Next when the peer closed the feed cleanly
var ErrStreamClosed = errors.New("event stream closed")

// ErrNotConnected is returned by Next before a successful Connect
var ErrNotConnected = errors.New("event stream not connected")

// ConnectionError is returned when the initial handshake fails
type ConnectionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("connecting to %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("connecting to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Fatal reports a handshake rejected for bad credentials or an unknown
// application; retrying it can not succeed.
func (e *ConnectionError) Fatal() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// StreamError is a transport failure after the feed was established
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return "event stream error: " + e.Err.Error() }

func (e *StreamError) Unwrap() error { return e.Err }
