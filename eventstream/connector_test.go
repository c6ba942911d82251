package eventstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ari/events"
}

func feedServer(t *testing.T, messages []string, closeCode int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("app") != "voice-agent" || r.URL.Query().Get("api_key") != "asterisk:secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if closeCode != 0 {
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, ""), time.Now().Add(time.Second))
			time.Sleep(50 * time.Millisecond)
		}
	}))
}

func TestConnectorReadsAndSkipsMalformed(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"call-started","channel":{"id":"C1","state":"Ring","caller":{"number":"+7900"}}}`,
		`not json at all`,
		`{"type":"call-ended","channel":{"id":"C1"}}`,
	}, websocket.CloseNormalClosure)
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), Application: "voice-agent", Username: "asterisk", Password: "secret"})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	first, err := c.Next(ctx)
	if err != nil || first.Kind != KindCallStarted {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := c.Next(ctx)
	if err != nil || second.Kind != KindCallEnded {
		t.Fatalf("second = %+v, %v (malformed message should be skipped)", second, err)
	}
	if _, err := c.Next(ctx); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
	if _, err := c.Next(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after close, got %v", err)
	}
}

func TestConnectorAbnormalCloseIsStreamError(t *testing.T) {
	srv := feedServer(t, nil, 0)
	defer srv.Close()
	c := New(Options{URL: wsURL(srv), Application: "voice-agent", Username: "asterisk", Password: "secret"})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := c.Next(context.Background())
	var serr *StreamError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StreamError, got %v", err)
	}
}

func TestConnectorRejectedHandshake(t *testing.T) {
	srv := feedServer(t, nil, 0)
	defer srv.Close()
	c := New(Options{URL: wsURL(srv), Application: "voice-agent", Username: "asterisk", Password: "wrong"})
	err := c.Connect(context.Background())
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if cerr.StatusCode != http.StatusUnauthorized || !cerr.Fatal() {
		t.Errorf("status = %d fatal = %v", cerr.StatusCode, cerr.Fatal())
	}
}

func TestConnectorUnreachable(t *testing.T) {
	c := New(Options{URL: "ws://127.0.0.1:1/ari/events", Application: "voice-agent", HandshakeTimeout: time.Second})
	err := c.Connect(context.Background())
	var cerr *ConnectionError
	if !errors.As(err, &cerr) || cerr.Fatal() {
		t.Fatalf("expected retryable ConnectionError, got %v", err)
	}
}

func TestNextHonoursContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-hold
	}))
	defer srv.Close()
	defer close(hold)

	c := New(Options{URL: wsURL(srv), Application: "voice-agent"})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestConnectorApplicationReplaced(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"call-started","channel":{"id":"C1","state":"Ring","caller":{"number":"+7900"}}}`,
		`{"type":"ApplicationReplaced","application":"voice-agent"}`,
		`{"type":"call-ended","channel":{"id":"C1"}}`,
	}, 0)
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), Application: "voice-agent", Username: "asterisk", Password: "secret"})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if ev, err := c.Next(ctx); err != nil || ev.Kind != KindCallStarted {
		t.Fatalf("first = %+v, %v", ev, err)
	}
	if _, err := c.Next(ctx); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed after a takeover, got %v", err)
	}
	if _, err := c.Next(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after a takeover, got %v", err)
	}
}
