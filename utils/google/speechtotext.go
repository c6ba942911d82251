package google

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/helper"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// SpeechToText transcribes recorded utterances with Google Speech
type SpeechToText struct {
	recognize  recognizeFunc
	close      func() error
	language   string
	sampleRate int32
}

// NewSpeechToText creates the speech client. An empty credentialsFile uses
// the application default credentials.
func NewSpeechToText(ctx context.Context, credentialsFile, language string, sampleRate int32) (*SpeechToText, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &SpeechToText{
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		close:      client.Close,
		language:   language,
		sampleRate: sampleRate,
	}, nil
}

// Transcribe returns the best transcript of audio, "" when nothing was
// recognised
func (s *SpeechToText) Transcribe(ctx context.Context, callID string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio is empty")
	}
	sampleRate := s.sampleRate
	if info, err := helper.InspectWAV(audio); err == nil && info.SampleRate > 0 {
		sampleRate = int32(info.SampleRate)
	}
	req := &speechpb.RecognizeRequest{
		Config: newRecognitionConfig(s.language, sampleRate),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
	sTime := time.Now()
	resp, err := s.recognize(ctx, req)
	if err != nil {
		ymlogger.LogErrorf(callID, "Error while recognizing speech through Google. Error: [%#v]", err)
		return "", err
	}
	if err := newrelic.SendResponseTime("voice_google_stt", callID, time.Since(sTime).Milliseconds()); err != nil && !errors.Is(err, newrelic.ErrNoApp) {
		ymlogger.LogErrorf("NewRelicMetric", "Failed to send voice_google_stt metric to newrelic. Error: [%#v]", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		ymlogger.LogInfof(callID, "[%v] (confidence=%v)", alt.Transcript, alt.Confidence)
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the client
func (s *SpeechToText) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func newRecognitionConfig(languageCode string, sampleRateHz int32) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            sampleRateHz,
		LanguageCode:               languageCode,
		EnableAutomaticPunctuation: true,
		Metadata: &speechpb.RecognitionMetadata{
			InteractionType: speechpb.RecognitionMetadata_PHONE_CALL,
		},
	}
}
