package asterisk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CyCoreSystems/ari/client/native"
)

func restServer(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "asterisk" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	opts := Options{
		URL:            srv.URL + "/ari",
		Username:       "asterisk",
		Password:       "secret",
		Application:    "voice-agent",
		CommandTimeout: time.Second,
	}
	ariClient := native.New(&native.Options{
		Application: opts.Application,
		Username:    opts.Username,
		Password:    opts.Password,
		URL:         opts.URL,
	})
	return NewClient(ariClient, opts), srv.Close
}

func TestIsRegistered(t *testing.T) {
	c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ari/applications" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"name":"other"},{"name":"voice-agent","channel_ids":[]}]`))
	})
	defer done()

	tests := []struct {
		app  string
		want bool
	}{
		{"voice-agent", true},
		{"missing", false},
	}
	for _, tt := range tests {
		got, err := c.IsRegistered(context.Background(), tt.app)
		if err != nil {
			t.Fatalf("IsRegistered: %v", err)
		}
		if got != tt.want {
			t.Errorf("IsRegistered(%s) = %v, want %v", tt.app, got, tt.want)
		}
	}
}

func TestCreateExternalMedia(t *testing.T) {
	c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Method != http.MethodPost || r.URL.Path != "/ari/channels/externalMedia" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if q.Get("app") != "voice-agent" || q.Get("external_host") != "127.0.0.1:7000" ||
			q.Get("format") != "slin16" || q.Get("channelId") != "M1" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"id":"M1"}`))
	})
	defer done()
	if err := c.CreateExternalMedia(context.Background(), "C1", "M1", "127.0.0.1:7000", "slin16"); err != nil {
		t.Fatal(err)
	}
}

func TestRESTFailures(t *testing.T) {
	t.Run("Non2xx", func(t *testing.T) {
		c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		defer done()
		_, err := c.FetchStoredRecording(context.Background(), "C1", "R1")
		var cerr *CommandError
		if !errors.As(err, &cerr) || cerr.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 CommandError, got %v", err)
		}
	})
	t.Run("Timeout", func(t *testing.T) {
		c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		})
		defer done()
		c.timeout = 50 * time.Millisecond
		err := c.Ping(context.Background())
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestDeleteStoredRecording(t *testing.T) {
	var method, path string
	c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	defer done()
	if err := c.DeleteStoredRecording(context.Background(), "C1", "R1"); err != nil {
		t.Fatal(err)
	}
	if method != http.MethodDelete || path != "/ari/recordings/stored/R1" {
		t.Errorf("got %s %s", method, path)
	}
}

func TestPing(t *testing.T) {
	var path string
	c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"system":{"version":"18.0.0"}}`))
	})
	defer done()
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if path != "/ari/asterisk/info" {
		t.Errorf("path = %s", path)
	}
}

func TestFetchStoredRecording(t *testing.T) {
	c, done := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ari/recordings/stored/R1/file" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte("RIFF"))
	})
	defer done()
	data, err := c.FetchStoredRecording(context.Background(), "C1", "R1")
	if err != nil || string(data) != "RIFF" {
		t.Fatalf("got %q, %v", data, err)
	}
}

func TestRunTimeout(t *testing.T) {
	c := NewClient(nil, Options{CommandTimeout: 20 * time.Millisecond})
	block := make(chan struct{})
	defer close(block)
	err := c.run(context.Background(), "answer", func() error {
		<-block
		return nil
	})
	var cerr *CommandError
	if !errors.As(err, &cerr) || cerr.Op != "answer" || !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected answer timeout, got %v", err)
	}

	err = c.run(context.Background(), "hangup", func() error { return errors.New("404 not found") })
	if !errors.As(err, &cerr) || cerr.Op != "hangup" {
		t.Fatalf("expected hangup CommandError, got %v", err)
	}
}

func TestWaiters(t *testing.T) {
	w := NewWaiters()
	ch := w.Expect("P1")
	if w.Notify(Completion{ID: "P2"}) {
		t.Error("notified an id nobody waits for")
	}
	if !w.Notify(Completion{ID: "P1", TalkingDuration: 2}) {
		t.Fatal("waiter not notified")
	}
	select {
	case c := <-ch:
		if c.TalkingDuration != 2 {
			t.Errorf("completion = %+v", c)
		}
	default:
		t.Fatal("completion not delivered")
	}
	if w.Notify(Completion{ID: "P1"}) {
		t.Error("second notification delivered")
	}
	w.Expect("P3")
	w.Forget("P3")
	if w.Len() != 0 {
		t.Errorf("len = %d", w.Len())
	}
}
