package conversation

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
)

// ErrNoSpeech is returned by a SpeechCapture when the caller said nothing
var ErrNoSpeech = errors.New("no speech captured")

// Utterance is one captured stretch of caller audio
type Utterance struct {
	Name       string
	Audio      []byte
	Duration   time.Duration
	SampleRate int
}

// SpeechCapture suspends until the caller has spoken on the bridge
type SpeechCapture interface {
	Capture(ctx context.Context, callID string, bridgeID string) (*Utterance, error)
}

// SpeechToText returns the transcript of audio, "" when nothing was recognised
type SpeechToText interface {
	Transcribe(ctx context.Context, callID string, audio []byte) (string, error)
}

// LanguageModel produces the assistant reply for the conversation so far
type LanguageModel interface {
	GenerateResponse(ctx context.Context, callID string, history []callstore.Turn) (string, error)
}

// TextToSpeech turns text into a media reference Asterisk can play
type TextToSpeech interface {
	Synthesize(ctx context.Context, callID string, text string) (string, error)
}

// Player plays a media reference on the bridge and returns once it finished
type Player interface {
	Play(ctx context.Context, callID string, bridgeID string, mediaRef string) error
}

// Collaborators is the set of backends a Supervisor drives. TTS may be nil,
// in which case only prerecorded prompts are played.
type Collaborators struct {
	Capture SpeechCapture
	STT     SpeechToText
	LLM     LanguageModel
	TTS     TextToSpeech
	Player  Player
}
