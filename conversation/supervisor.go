package conversation

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// maxFailedTurns is how many turns in a row may end in a collaborator
// failure before the call is given up
const maxFailedTurns = 3

// Config holds the dialogue limits and prompts
type Config struct {
	SilenceTimeout     time.Duration
	MaxDuration        time.Duration
	PollInterval       time.Duration
	HistoryTurns       int
	TerminationPhrases []string
	Greeting           Prompt
	RepeatPrompt       Prompt
	Apology            Prompt
	Farewell           Prompt
}

// Supervisor runs the dialogue of the calls in Conversing. It only holds
// call ids and looks sessions up in the registry.
type Supervisor struct {
	conf     Config
	collab   Collaborators
	registry *call.Registry
	now      func() time.Time
}

// NewSupervisor returns a Supervisor
func NewSupervisor(conf Config, collab Collaborators, registry *call.Registry) *Supervisor {
	if conf.PollInterval <= 0 {
		conf.PollInterval = 5 * time.Second
	}
	if conf.HistoryTurns <= 0 {
		conf.HistoryTurns = 10
	}
	return &Supervisor{conf: conf, collab: collab, registry: registry, now: time.Now}
}

// Greet plays the greeting on the call's bridge
func (s *Supervisor) Greet(ctx context.Context, callID string) error {
	sess, ok := s.registry.GetSession(callID)
	if !ok {
		return nil
	}
	return s.playPrompt(ctx, sess, s.conf.Greeting)
}

// Farewell plays the farewell line. Used on the limit driven endings.
func (s *Supervisor) Farewell(ctx context.Context, callID string) error {
	sess, ok := s.registry.GetSession(callID)
	if !ok {
		return nil
	}
	return s.playPrompt(ctx, sess, s.conf.Farewell)
}

// Run drives the dialogue until the call has to end and returns why. A
// reason recorded on the session by someone else takes precedence.
func (s *Supervisor) Run(ctx context.Context, callID string) call.EndReason {
	sess, ok := s.registry.GetSession(callID)
	if !ok {
		return call.EndReasonCallEnded
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.monitor(ctx, sess)

	reason := s.converse(ctx, sess)
	if recorded := sess.EndReason(); recorded != call.EndReasonNone {
		return recorded
	}
	if reason == call.EndReasonNone {
		// cancelled from outside without a recorded reason
		return call.EndReasonShutdown
	}
	return reason
}

func (s *Supervisor) converse(ctx context.Context, sess *call.Session) call.EndReason {
	captureFailures := 0
	failedTurns := 0
	for {
		if ctx.Err() != nil {
			return call.EndReasonNone
		}
		if failedTurns >= maxFailedTurns {
			ymlogger.LogErrorf(sess.CallID, "Giving up the call after %d failed turns", failedTurns)
			return call.EndReasonCollaboratorFailure
		}
		bridgeID, _ := sess.Media()

		utterance, err := s.collab.Capture.Capture(ctx, sess.CallID, bridgeID)
		if err != nil {
			if ctx.Err() != nil {
				return call.EndReasonNone
			}
			if errors.Is(err, ErrNoSpeech) {
				continue
			}
			captureFailures++
			ymlogger.LogErrorf(sess.CallID, "Error while capturing speech. Attempt: [%d] Error: [%#v]", captureFailures, err)
			if captureFailures > 1 {
				return call.EndReasonCommandFailed
			}
			continue
		}
		captureFailures = 0
		sess.Touch(s.now())

		text, sttTook, err := s.attempt(ctx, sess, "speech to text", func(ctx context.Context) (string, error) {
			return s.collab.STT.Transcribe(ctx, sess.CallID, utterance.Audio)
		})
		if ctx.Err() != nil {
			return call.EndReasonNone
		}
		if err != nil {
			failedTurns++
		}
		if text == "" {
			ymlogger.LogInfo(sess.CallID, "Nothing recognised, asking the caller to repeat")
			if err := s.playPrompt(ctx, sess, s.conf.RepeatPrompt); err != nil {
				return s.playFailed(ctx, sess, err)
			}
			continue
		}
		// only recognised utterances count as turns
		sess.Latencies.AddNewTurn()
		sess.Latencies.RecordLatency(callstore.STTResponseTimeinMs, sttTook.Milliseconds())
		sess.Transcript.Append(callstore.User, text, s.now())
		ymlogger.LogInfof(sess.CallID, "Caller said: [%s]", text)
		farewell := matchesAny(text, s.conf.TerminationPhrases)

		history := sess.Transcript.Recent(s.conf.HistoryTurns)
		reply, llmTook, err := s.attempt(ctx, sess, "language model", func(ctx context.Context) (string, error) {
			return s.collab.LLM.GenerateResponse(ctx, sess.CallID, history)
		})
		sess.Latencies.RecordLatency(callstore.LLMResponseTimeinMs, llmTook.Milliseconds())
		if ctx.Err() != nil {
			return call.EndReasonNone
		}
		if err != nil || reply == "" {
			failedTurns++
			if err := s.playPrompt(ctx, sess, s.conf.Apology); err != nil {
				return s.playFailed(ctx, sess, err)
			}
			if farewell {
				return call.EndReasonFarewell
			}
			continue
		}
		sess.Transcript.Append(callstore.Assistant, reply, s.now())
		ymlogger.LogInfof(sess.CallID, "Assistant replied: [%s]", reply)

		if err := s.playReply(ctx, sess, reply); err != nil {
			return s.playFailed(ctx, sess, err)
		}
		failedTurns = 0
		sess.Touch(s.now())
		if farewell {
			ymlogger.LogInfo(sess.CallID, "Caller said goodbye, ending the call")
			return call.EndReasonFarewell
		}
	}
}

// attempt calls fn and retries it once on failure. It also returns how long
// the last try took.
func (s *Supervisor) attempt(
	ctx context.Context,
	sess *call.Session,
	what string,
	fn func(context.Context) (string, error),
) (string, time.Duration, error) {
	var err error
	var took time.Duration
	for try := 1; try <= 2; try++ {
		start := s.now()
		var out string
		out, err = fn(ctx)
		took = s.now().Sub(start)
		if err == nil {
			return out, took, nil
		}
		if ctx.Err() != nil {
			return "", took, ctx.Err()
		}
		ymlogger.LogErrorf(sess.CallID, "Error while calling %s. Attempt: [%d] Error: [%#v]", what, try, err)
	}
	return "", took, err
}

// playPrompt synthesizes p.Text when a TTS backend is set and falls back to
// p.Media
func (s *Supervisor) playPrompt(ctx context.Context, sess *call.Session, p Prompt) error {
	media := p.Media
	if p.Text != "" && s.collab.TTS != nil {
		ref, _, err := s.attempt(ctx, sess, "text to speech", func(ctx context.Context) (string, error) {
			return s.collab.TTS.Synthesize(ctx, sess.CallID, p.Text)
		})
		if err == nil && ref != "" {
			media = ref
		}
	}
	return s.play(ctx, sess, media)
}

// playReply speaks the assistant reply. Without a TTS backend the reply is
// only logged; when synthesis fails the caller hears the apology instead.
func (s *Supervisor) playReply(ctx context.Context, sess *call.Session, reply string) error {
	if s.collab.TTS == nil {
		ymlogger.LogWarning(sess.CallID, "No text to speech backend configured, reply not spoken")
		return nil
	}
	ref, took, err := s.attempt(ctx, sess, "text to speech", func(ctx context.Context) (string, error) {
		return s.collab.TTS.Synthesize(ctx, sess.CallID, reply)
	})
	sess.Latencies.RecordLatency(callstore.TTSResponseTimeinMs, took.Milliseconds())
	if err != nil || ref == "" {
		if ctx.Err() != nil {
			return nil
		}
		ymlogger.LogErrorf(sess.CallID, "Could not synthesize the reply, playing the apology. Error: [%#v]", err)
		ref = s.conf.Apology.Media
	}
	return s.play(ctx, sess, ref)
}

func (s *Supervisor) play(ctx context.Context, sess *call.Session, media string) error {
	if media == "" {
		return nil
	}
	bridgeID, _ := sess.Media()
	return s.collab.Player.Play(ctx, sess.CallID, bridgeID, media)
}

func (s *Supervisor) playFailed(ctx context.Context, sess *call.Session, err error) call.EndReason {
	if ctx.Err() != nil {
		return call.EndReasonNone
	}
	ymlogger.LogErrorf(sess.CallID, "Error while playing to the caller. Error: [%#v]", err)
	return call.EndReasonCommandFailed
}
