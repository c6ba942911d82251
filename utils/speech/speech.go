package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Result is the payload returned by the speech service
type Result struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Client posts recorded utterances to an HTTP speech to text service
type Client struct {
	endpoint string
	language string
	http     *http.Client
}

// NewClient returns a Client
func NewClient(endpoint, language string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		language: language,
		http:     &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the wav and returns its transcript
func (c *Client) Transcribe(ctx context.Context, callID string, audio []byte) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("language", c.language)
	q.Set("call_id", callID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "audio/wav")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("speech service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	ymlogger.LogInfof(callID, "[%v] (confidence=%v)", result.Transcript, result.Confidence)
	return strings.TrimSpace(result.Transcript), nil
}
