package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
)

type fakeCapture struct {
	mu        sync.Mutex
	remaining int
	noSpeech  bool
	err       error
}

func (f *fakeCapture) Capture(ctx context.Context, callID, bridgeID string) (*Utterance, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	if f.remaining > 0 {
		f.remaining--
		f.mu.Unlock()
		return &Utterance{Name: "r", Audio: []byte("audio")}, nil
	}
	noSpeech := f.noSpeech
	f.mu.Unlock()
	if noSpeech {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
			return nil, ErrNoSpeech
		}
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeSTT struct {
	mu    sync.Mutex
	texts []string
	err   error
	calls int
}

func (f *fakeSTT) Transcribe(ctx context.Context, callID string, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

type fakeLLM struct {
	mu         sync.Mutex
	err        error
	calls      int
	maxHistory int
}

func (f *fakeLLM) GenerateResponse(ctx context.Context, callID string, history []callstore.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(history) > f.maxHistory {
		f.maxHistory = len(history)
	}
	if f.err != nil {
		return "", f.err
	}
	return "reply to " + history[len(history)-1].Text, nil
}

type fakeTTS struct{}

func (fakeTTS) Synthesize(ctx context.Context, callID, text string) (string, error) {
	return "tts:" + text, nil
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	err    error
}

func (f *fakePlayer) Play(ctx context.Context, callID, bridgeID, mediaRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.played = append(f.played, mediaRef)
	return nil
}

func (f *fakePlayer) Played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func testConfig() Config {
	return Config{
		SilenceTimeout:     time.Minute,
		MaxDuration:        time.Minute,
		PollInterval:       5 * time.Millisecond,
		HistoryTurns:       10,
		TerminationPhrases: []string{"goodbye", "that's all"},
		Greeting:           Prompt{Text: "Hello", Media: "sound:hello-world"},
		RepeatPrompt:       Prompt{Text: "Please repeat", Media: "sound:pls-try-again"},
		Apology:            Prompt{Media: "sound:an-error-has-occurred"},
		Farewell:           Prompt{Media: "sound:goodbye"},
	}
}

type harness struct {
	sess    *call.Session
	ctx     context.Context
	sup     *Supervisor
	capture *fakeCapture
	stt     *fakeSTT
	llm     *fakeLLM
	player  *fakePlayer
}

func newHarness(t *testing.T, conf Config) *harness {
	t.Helper()
	reg := call.NewRegistry()
	sess := call.NewSession("C1", "1001", call.StateRinging, time.Now())
	sess.SetMedia("B1", "")
	reg.PutSession(sess)
	h := &harness{
		sess:    sess,
		ctx:     sess.Start(context.Background()),
		capture: &fakeCapture{},
		stt:     &fakeSTT{},
		llm:     &fakeLLM{},
		player:  &fakePlayer{},
	}
	h.sup = NewSupervisor(conf, Collaborators{
		Capture: h.capture,
		STT:     h.stt,
		LLM:     h.llm,
		TTS:     fakeTTS{},
		Player:  h.player,
	}, reg)
	t.Cleanup(func() { sess.RequestEnd(call.EndReasonShutdown) })
	return h
}

func (h *harness) run(t *testing.T) call.EndReason {
	t.Helper()
	result := make(chan call.EndReason, 1)
	go func() { result <- h.sup.Run(h.ctx, h.sess.CallID) }()
	select {
	case r := <-result:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return call.EndReasonNone
	}
}

// endWhen requests the end of the call once cond holds
func (h *harness) endWhen(cond func() bool, reason call.EndReason) {
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for !cond() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		h.sess.RequestEnd(reason)
	}()
}

func TestRunEndsOnFarewell(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.remaining = 2
	h.stt.texts = []string{"what time is it", "OK, goodbye!"}

	if got := h.run(t); got != call.EndReasonFarewell {
		t.Fatalf("reason = %s, want farewell", got)
	}
	turns := h.sess.Transcript.Turns()
	if len(turns) != 4 {
		t.Fatalf("transcript has %d turns, want 4: %+v", len(turns), turns)
	}
	if turns[0].Role != callstore.User || turns[1].Role != callstore.Assistant {
		t.Errorf("unexpected roles %s %s", turns[0].Role, turns[1].Role)
	}
	played := h.player.Played()
	want := []string{"tts:reply to what time is it", "tts:reply to OK, goodbye!"}
	if len(played) != 2 || played[0] != want[0] || played[1] != want[1] {
		t.Errorf("played = %v, want %v", played, want)
	}
}

func TestRunAsksToRepeatOnEmptyTranscript(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.remaining = 1

	h.endWhen(func() bool { return len(h.player.Played()) == 1 }, call.EndReasonCallEnded)
	if got := h.run(t); got != call.EndReasonCallEnded {
		t.Fatalf("reason = %s, want call-ended", got)
	}
	if played := h.player.Played(); played[0] != "tts:Please repeat" {
		t.Errorf("played = %v", played)
	}
	if n := h.sess.Transcript.Len(); n != 0 {
		t.Errorf("transcript has %d turns, want none", n)
	}
	if h.llm.calls != 0 {
		t.Errorf("language model called %d times", h.llm.calls)
	}
}

func TestRunLanguageModelFailurePlaysApology(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.remaining = 1
	h.stt.texts = []string{"hello"}
	h.llm.err = errors.New("unavailable")

	h.endWhen(func() bool { return len(h.player.Played()) == 1 }, call.EndReasonCallEnded)
	h.run(t)

	if played := h.player.Played(); played[0] != "sound:an-error-has-occurred" {
		t.Errorf("played = %v, want apology", played)
	}
	if h.llm.calls != 2 {
		t.Errorf("language model called %d times, want 2", h.llm.calls)
	}
	turns := h.sess.Transcript.Turns()
	if len(turns) != 1 || turns[0].Role != callstore.User {
		t.Errorf("transcript = %+v, want only the caller turn", turns)
	}
}

func TestRunBoundsHistory(t *testing.T) {
	conf := testConfig()
	conf.HistoryTurns = 4
	h := newHarness(t, conf)
	h.capture.remaining = 5
	h.stt.texts = []string{"one", "two", "three", "four", "goodbye"}

	if got := h.run(t); got != call.EndReasonFarewell {
		t.Fatalf("reason = %s, want farewell", got)
	}
	if h.llm.maxHistory != 4 {
		t.Errorf("largest history = %d, want 4", h.llm.maxHistory)
	}
	if n := h.sess.Transcript.Len(); n != 10 {
		t.Errorf("transcript has %d turns, want all 10 kept", n)
	}
}

func TestRunGivesUpAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.remaining = 100
	h.stt.err = errors.New("quota exceeded")

	if got := h.run(t); got != call.EndReasonCollaboratorFailure {
		t.Fatalf("reason = %s, want collaborator-failure", got)
	}
	if h.stt.calls != 2*maxFailedTurns {
		t.Errorf("speech to text called %d times, want %d", h.stt.calls, 2*maxFailedTurns)
	}
}

func TestRunCaptureFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.err = errors.New("bridge gone")
	if got := h.run(t); got != call.EndReasonCommandFailed {
		t.Fatalf("reason = %s, want command-failed", got)
	}
}

func TestRunPlaybackFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.remaining = 1
	h.stt.texts = []string{"hello"}
	h.player.err = errors.New("404")
	if got := h.run(t); got != call.EndReasonCommandFailed {
		t.Fatalf("reason = %s, want command-failed", got)
	}
}

func TestRunMaxDuration(t *testing.T) {
	conf := testConfig()
	conf.MaxDuration = 30 * time.Millisecond
	h := newHarness(t, conf)

	start := time.Now()
	if got := h.run(t); got != call.EndReasonMaxDuration {
		t.Fatalf("reason = %s, want max-duration", got)
	}
	if h.sess.EndReason() != call.EndReasonMaxDuration {
		t.Errorf("session reason = %s", h.sess.EndReason())
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("took %s to notice the limit", elapsed)
	}
}

func TestRunSilenceTimeout(t *testing.T) {
	conf := testConfig()
	conf.SilenceTimeout = 30 * time.Millisecond
	h := newHarness(t, conf)
	h.capture.noSpeech = true

	if got := h.run(t); got != call.EndReasonSilenceTimeout {
		t.Fatalf("reason = %s, want silence-timeout", got)
	}
}

func TestGreetAndFarewell(t *testing.T) {
	h := newHarness(t, testConfig())
	if err := h.sup.Greet(context.Background(), "C1"); err != nil {
		t.Fatalf("Greet: %v", err)
	}
	if err := h.sup.Farewell(context.Background(), "C1"); err != nil {
		t.Fatalf("Farewell: %v", err)
	}
	if err := h.sup.Greet(context.Background(), "unknown"); err != nil {
		t.Fatalf("Greet unknown: %v", err)
	}
	played := h.player.Played()
	if len(played) != 2 || played[0] != "tts:Hello" || played[1] != "sound:goodbye" {
		t.Errorf("played = %v", played)
	}
}

func TestCheckLimits(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	sup := NewSupervisor(Config{SilenceTimeout: 300 * time.Second, MaxDuration: 1800 * time.Second}, Collaborators{}, call.NewRegistry())

	tests := []struct {
		name     string
		activity time.Duration
		now      time.Duration
		want     call.EndReason
	}{
		{"fresh", 0, time.Second, call.EndReasonNone},
		{"just under silence", 0, 299 * time.Second, call.EndReasonNone},
		{"silence", 0, 300 * time.Second, call.EndReasonSilenceTimeout},
		{"active", 1700 * time.Second, 1799 * time.Second, call.EndReasonNone},
		{"max duration wins", 1790 * time.Second, 1800 * time.Second, call.EndReasonMaxDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := call.NewSession("C1", "", call.StateConversing, start)
			sess.Touch(start.Add(tt.activity))
			if got := sup.checkLimits(sess, start.Add(tt.now)); got != tt.want {
				t.Errorf("checkLimits = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	phrases := []string{"goodbye", "bye", "that's all", "end call"}
	tests := []struct {
		utterance string
		want      bool
	}{
		{"Goodbye!", true},
		{"ok, bye.", true},
		{"That's all, thanks", true},
		{"please END   CALL", true},
		{"maybe tomorrow", false},
		{"byebye", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			if got := matchesAny(tt.utterance, phrases); got != tt.want {
				t.Errorf("matchesAny(%q) = %v, want %v", tt.utterance, got, tt.want)
			}
		})
	}
}

type failingTTS struct{}

func (failingTTS) Synthesize(ctx context.Context, callID, text string) (string, error) {
	return "", errors.New("voice unavailable")
}

func TestRunReplyPlayback(t *testing.T) {
	tests := []struct {
		name string
		tts  TextToSpeech
		want []string
	}{
		{"synthesized", fakeTTS{}, []string{"tts:reply to goodbye"}},
		{"no text to speech", nil, nil},
		{"synthesis failed", failingTTS{}, []string{"sound:an-error-has-occurred"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			h.sup.collab.TTS = tt.tts
			h.capture.remaining = 1
			h.stt.texts = []string{"goodbye"}

			if got := h.run(t); got != call.EndReasonFarewell {
				t.Fatalf("reason = %s, want farewell", got)
			}
			played := h.player.Played()
			if len(played) != len(tt.want) {
				t.Fatalf("played = %v, want %v", played, tt.want)
			}
			for i := range played {
				if played[i] != tt.want[i] {
					t.Errorf("played = %v, want %v", played, tt.want)
				}
			}
			turns := h.sess.Transcript.Turns()
			if len(turns) != 2 || turns[1].Text != "reply to goodbye" {
				t.Errorf("transcript = %+v", turns)
			}
		})
	}
}

func TestRunCountsOnlyRecognisedTurns(t *testing.T) {
	h := newHarness(t, testConfig())
	h.capture.remaining = 3
	h.stt.texts = []string{"", "hello", "goodbye"}

	if got := h.run(t); got != call.EndReasonFarewell {
		t.Fatalf("reason = %s, want farewell", got)
	}
	latencies := h.sess.Latencies.GetLatencies()
	if len(latencies) != 2 {
		t.Fatalf("latency turns = %+v, want 2", latencies)
	}
	for i, l := range latencies {
		if l.Turn != i+1 {
			t.Errorf("turn %d numbered %d", i, l.Turn)
		}
	}
	if played := h.player.Played(); played[0] != "tts:Please repeat" {
		t.Errorf("played = %v", played)
	}
}
