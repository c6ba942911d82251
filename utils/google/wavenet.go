package google

import (
	"context"
	"errors"
	"os"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/helper"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

const (
	VOICE_FEMALE = "female"
	VOICE_MALE   = "male"
)

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// TextToSpeech synthesizes replies into wav files Asterisk can play
type TextToSpeech struct {
	synthesize synthesizeFunc
	close      func() error
	dir        string
	language   string
	voiceID    string
	sampleRate int32
}

// NewTextToSpeech creates the text to speech client. Files are cached in dir.
func NewTextToSpeech(ctx context.Context, credentialsFile, dir, language, voiceID string, sampleRate int32) (*TextToSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		ymlogger.LogErrorf("GoogleTTS", "Failed to initialize the Google text to speech. Error: [%#v]", err)
		return nil, err
	}
	if len(voiceID) <= 0 {
		voiceID = VOICE_FEMALE
	}
	return &TextToSpeech{
		synthesize: func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
			return client.SynthesizeSpeech(ctx, req)
		},
		close:      client.Close,
		dir:        dir,
		language:   language,
		voiceID:    voiceID,
		sampleRate: sampleRate,
	}, nil
}

// Synthesize returns a media reference for text, reusing a cached file
func (t *TextToSpeech) Synthesize(ctx context.Context, callID string, text string) (string, error) {
	if text == "" {
		return "", errors.New("text is empty")
	}
	wavFile := helper.CacheFileName(t.dir, text, "wavenet", t.voiceID, ".wav")
	if _, err := os.Stat(wavFile); err == nil {
		ymlogger.LogDebugf(callID, "File already exists: [%s]", wavFile)
		return helper.SoundRef(wavFile), nil
	}

	sTime := time.Now()
	resp, err := t.synthesize(ctx, t.newRequest(text))
	if err != nil {
		ymlogger.LogErrorf(callID, "Failed to Synthesize Speech through Google TTS. Error: [%#v]", err)
		return "", err
	}
	if err := newrelic.SendResponseTime("voice_google_tts", callID, time.Since(sTime).Milliseconds()); err != nil && !errors.Is(err, newrelic.ErrNoApp) {
		ymlogger.LogErrorf("NewRelicMetric", "Failed to send voice_google_tts metric to newrelic. Error: [%#v]", err)
	}
	if err := os.WriteFile(wavFile, resp.AudioContent, 0644); err != nil {
		ymlogger.LogErrorf(callID, "Failed to write the content to the file. Error: [%#v]", err)
		return "", err
	}
	return helper.SoundRef(wavFile), nil
}

func (t *TextToSpeech) newRequest(text string) *texttospeechpb.SynthesizeSpeechRequest {
	voice := &texttospeechpb.VoiceSelectionParams{LanguageCode: t.language}
	switch t.voiceID {
	case VOICE_FEMALE:
		voice.SsmlGender = texttospeechpb.SsmlVoiceGender_FEMALE
	case VOICE_MALE:
		voice.SsmlGender = texttospeechpb.SsmlVoiceGender_MALE
	default:
		voice.Name = t.voiceID
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: voice,
		// LINEAR16 comes back with a wav header
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: t.sampleRate,
		},
	}
}

// Close releases the client
func (t *TextToSpeech) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}
