package bothelper

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

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/ratelimit"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	guuid "github.com/google/uuid"
)

// ErrEmptyReply is returned when the bot answered without a message
var ErrEmptyReply = errors.New("bot returned an empty message")

// BotRequest contains the bot request parameter for the bot API
type BotRequest struct {
	RequestID    string           `json:"traceId"`
	CallID       string           `json:"call_sid"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Messages     []callstore.Turn `json:"messages"`
}

// BotResponse is the response received from the bot
type BotResponse struct {
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Disconnect bool   `json:"disconnect"`
}

// Options configures a Client
type Options struct {
	Endpoint     string
	AuthToken    string
	SystemPrompt string
	Timeout      time.Duration
	Retries      int
}

// Client talks to an HTTP language model
type Client struct {
	opts    Options
	http    *http.Client
	limiter *ratelimit.AdaptiveRateLimiter
}

// NewClient returns a bot client. limiter may be nil.
func NewClient(opts Options, limiter *ratelimit.AdaptiveRateLimiter) *Client {
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	return &Client{
		opts:    opts,
		limiter: limiter,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost:   100,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   3 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
			Timeout: opts.Timeout,
		},
	}
}

// GenerateResponse posts the recent history and returns the bot's message
func (c *Client) GenerateResponse(ctx context.Context, callID string, history []callstore.Turn) (string, error) {
	body, err := json.Marshal(BotRequest{
		RequestID:    guuid.New().String(),
		CallID:       callID,
		SystemPrompt: c.opts.SystemPrompt,
		Messages:     history,
	})
	if err != nil {
		return "", err
	}
	ymlogger.LogDebugf(callID, "Hitting Bot API with request Body: [%s]", string(body))

	var respBody []byte
	for i := 0; i < c.opts.Retries; i++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		var status int
		sTime := time.Now()
		respBody, status, err = c.post(ctx, body)
		if c.limiter != nil {
			c.limiter.RecordLatency(time.Since(sTime))
		}
		if err := newrelic.SendResponseTime("voice_botapi", callID, time.Since(sTime).Milliseconds()); err != nil && !errors.Is(err, newrelic.ErrNoApp) {
			ymlogger.LogErrorf("NewRelicMetric", "Failed to send botAPI metric to newrelic. Error: [%#v]", err)
		}
		if err == nil && status >= http.StatusInternalServerError {
			err = fmt.Errorf("bot returned status %d", status)
			ymlogger.LogErrorf(callID, "Got server error response from bot. Status: [%d]. Retrying.....", status)
			continue
		}
		if err == nil && status >= http.StatusBadRequest {
			return "", fmt.Errorf("bot returned status %d", status)
		}
		if err != nil {
			ymlogger.LogErrorf(callID, "Failed to get response from bot. Error: [%#v]. Retrying.....", err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		break
	}
	if err != nil {
		return "", err
	}

	var botResponse BotResponse
	if err := json.Unmarshal(respBody, &botResponse); err != nil {
		ymlogger.LogErrorf(callID, "Failed to unmarshal the response body. Error: [%#v]", err)
		return "", err
	}
	if botResponse.Message == "" {
		return "", ErrEmptyReply
	}
	return botResponse.Message, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.AuthToken != "" {
		req.Header.Set("Authorization", c.opts.AuthToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}
