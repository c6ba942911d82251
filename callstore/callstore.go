package callstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// CallRecord is what survives a call once it terminates
type CallRecord struct {
	CallID      string             `json:"sid"`
	Caller      string             `json:"from,omitempty"`
	CallerE164  string             `json:"from_e164,omitempty"`
	BridgeID    string             `json:"bridge_id,omitempty"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     time.Time          `json:"end_time"`
	Duration    int                `json:"duration"`
	EndReason   string             `json:"end_reason"`
	Host        string             `json:"host,omitempty"`
	Messages    []Turn             `json:"messages"`
	LatencyInfo []LatencyParameter `json:"latency_info"`
}

// Sink receives the record of every terminated call
type Sink interface {
	Name() string
	Store(ctx context.Context, record *CallRecord) error
}

// MultiSink fans a record out to every sink. A failing sink does not stop the others.
type MultiSink []Sink

// Store delivers the record to every sink and joins the failures
func (m MultiSink) Store(ctx context.Context, record *CallRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Store(ctx, record); err != nil {
			ymlogger.LogErrorf(record.CallID, "Error while storing the call record in [%s]. Error: [%#v]", sink.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogStore posts call records to the log store HTTP API
type LogStore struct {
	endpoint string
	client   *http.Client
}

// NewLogStore returns a LogStore posting to endpoint
func NewLogStore(endpoint string) *LogStore {
	return &LogStore{
		endpoint: endpoint,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
				TLSHandshakeTimeout: 3 * time.Second,
			},
			Timeout: 5 * time.Second,
		},
	}
}

// Name implements Sink
func (*LogStore) Name() string { return "logstore" }

// Store implements Sink
func (l *LogStore) Store(ctx context.Context, record *CallRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ymlogger.LogDebugf(record.CallID, "Hitting the Logs Store API with the request body: [%s]", string(jsonData))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	respBody, _ := io.ReadAll(response.Body)
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("log store returned %d", response.StatusCode)
	}
	ymlogger.LogInfof(record.CallID, "Got the response from Log Store API. [%s]", string(respBody))
	return nil
}
