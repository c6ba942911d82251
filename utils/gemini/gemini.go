package gemini

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/ratelimit"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"google.golang.org/genai"
)

// ErrEmptyReply is returned when the model produced no text
var ErrEmptyReply = errors.New("gemini returned no text")

// Options configures the Gemini backend
type Options struct {
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	BaseURL      string
}

// Gemini is a language model backed by the Gemini API
type Gemini struct {
	client  *genai.Client
	opts    Options
	limiter *ratelimit.AdaptiveRateLimiter
}

// New creates the Gemini client. limiter may be nil.
func New(ctx context.Context, opts Options, limiter *ratelimit.AdaptiveRateLimiter) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	conf := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		conf.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, opts: opts, limiter: limiter}, nil
}

// GenerateResponse asks the model for the next assistant line
func (g *Gemini) GenerateResponse(ctx context.Context, callID string, history []callstore.Turn) (string, error) {
	contents := toContents(history)
	if len(contents) == 0 {
		return "", errors.New("no caller turn to respond to")
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	var conf *genai.GenerateContentConfig
	if g.opts.SystemPrompt != "" {
		conf = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(g.opts.SystemPrompt, genai.RoleUser),
		}
	}

	sTime := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, contents, conf)
	if g.limiter != nil {
		g.limiter.RecordLatency(time.Since(sTime))
	}
	if err := newrelic.SendResponseTime("voice_gemini", callID, time.Since(sTime).Milliseconds()); err != nil && !errors.Is(err, newrelic.ErrNoApp) {
		ymlogger.LogErrorf("NewRelicMetric", "Failed to send voice_gemini metric to newrelic. Error: [%#v]", err)
	}
	if err != nil {
		ymlogger.LogErrorf(callID, "Error while generating the response through Gemini. Error: [%#v]", err)
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// toContents maps the transcript to Gemini contents. The conversation must
// open with the caller and alternate, so leading assistant turns are dropped
// and consecutive turns of one role are merged.
func toContents(history []callstore.Turn) []*genai.Content {
	var contents []*genai.Content
	var lastRole genai.Role
	var pending string
	flush := func() {
		if pending != "" {
			contents = append(contents, genai.NewContentFromText(pending, lastRole))
		}
	}
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == callstore.Assistant {
			role = genai.RoleModel
		}
		if len(contents) == 0 && pending == "" && role == genai.RoleModel {
			continue
		}
		if role == lastRole && pending != "" {
			pending += "\n" + turn.Text
			continue
		}
		flush()
		lastRole = role
		pending = turn.Text
	}
	flush()
	return contents
}
