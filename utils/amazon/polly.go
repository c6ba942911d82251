package amazon

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/helper"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"
)

// Polly synthesizes replies into signed linear files Asterisk plays natively
type Polly struct {
	svc       pollyiface.PollyAPI
	dir       string
	voiceID   string
	frequency int
}

// NewPolly loads the AWS credentials from the shared config and environment
func NewPolly(dir, voiceID string, frequency int) (*Polly, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}
	return newPolly(polly.New(sess), dir, voiceID, frequency), nil
}

func newPolly(svc pollyiface.PollyAPI, dir, voiceID string, frequency int) *Polly {
	if frequency != 16000 {
		frequency = 8000
	}
	return &Polly{svc: svc, dir: dir, voiceID: voiceID, frequency: frequency}
}

// extension is the Asterisk signed linear extension for the sample rate
func (p *Polly) extension() string {
	if p.frequency == 16000 {
		return ".sln16"
	}
	return ".sln"
}

// Synthesize returns a media reference for text, reusing a cached file
func (p *Polly) Synthesize(ctx context.Context, callID string, text string) (string, error) {
	if text == "" {
		return "", errors.New("text is empty")
	}
	audioFile := helper.CacheFileName(p.dir, text, "polly", p.voiceID, p.extension())
	if _, err := os.Stat(audioFile); err == nil {
		ymlogger.LogDebugf(callID, "File already exists: [%s]", audioFile)
		return helper.SoundRef(audioFile), nil
	}

	input := &polly.SynthesizeSpeechInput{
		OutputFormat: aws.String(polly.OutputFormatPcm),
		Text:         aws.String(text),
		VoiceId:      aws.String(p.voiceID),
		SampleRate:   aws.String(strconv.Itoa(p.frequency)),
	}
	sTime := time.Now()
	output, err := p.svc.SynthesizeSpeechWithContext(ctx, input)
	if err != nil {
		ymlogger.LogErrorf(callID, "Error while synthesizing input. File:[%s], Error: [%#v]", audioFile, err)
		return "", err
	}
	defer output.AudioStream.Close()
	if err := newrelic.SendResponseTime("voice_amazon_tts", callID, time.Since(sTime).Milliseconds()); err != nil && !errors.Is(err, newrelic.ErrNoApp) {
		ymlogger.LogErrorf("NewRelicMetric", "Failed to send voice_amazon_tts metric to newrelic. Error: [%#v]", err)
	}

	// write under a temporary name so a concurrent call never plays a partial file
	tmp, err := os.CreateTemp(p.dir, "polly-*")
	if err != nil {
		ymlogger.LogErrorf(callID, "Error while creating file. File:[%s], Error: [%#v]", audioFile, err)
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, output.AudioStream); err != nil {
		tmp.Close()
		ymlogger.LogErrorf(callID, "Error while copying input. File:[%s], Error: [%#v]", audioFile, err)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), audioFile); err != nil {
		return "", err
	}
	return helper.SoundRef(audioFile), nil
}
