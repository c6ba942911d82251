package metrics

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"
)

func TestSendMetric(t *testing.T) {
	clientMu.Lock()
	client = nil
	clientMu.Unlock()

	m, err := NewMetric("voice_call", map[string]string{"end_reason": "farewell"}, map[string]interface{}{"duration_sec": 12})
	if err != nil {
		t.Fatal(err)
	}
	if err := SendMetric(m); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port
	if err := InitClient(Config{Host: "127.0.0.1", Port: port, Service: "voice-orchestrator"}); err != nil {
		t.Fatalf("InitClient: %v", err)
	}
	if !Enabled() {
		t.Fatal("client not enabled")
	}
	if err := SendMetric(m); err != nil {
		t.Fatalf("SendMetric: %v", err)
	}

	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got metricDump
	if err := json.Unmarshal(buf[:n], &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Name != "voice_call" || got.Filters["service"] != "voice-orchestrator" || got.Filters["end_reason"] != "farewell" {
		t.Errorf("unexpected metric %+v", got)
	}
}

func TestInitClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"no port", Config{Host: "localhost", Service: "x"}, true},
		{"no service", Config{Host: "localhost", Port: 8125}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitClient(tt.conf); (err != nil) != tt.wantErr {
				t.Errorf("InitClient err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMetricRejectsEmptyFilter(t *testing.T) {
	if _, err := NewMetric("x", map[string]string{"k": ""}, nil); err == nil {
		t.Fatal("expected error for an empty filter value")
	}
}
