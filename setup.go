package main

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/bothelper"
	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"bitbucket.org/yellowmessenger/voice-orchestrator/configmanager"
	"bitbucket.org/yellowmessenger/voice-orchestrator/conversation"
	"bitbucket.org/yellowmessenger/voice-orchestrator/models/mysql"
	"bitbucket.org/yellowmessenger/voice-orchestrator/models/redis"
	"bitbucket.org/yellowmessenger/voice-orchestrator/queuemanager"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/amazon"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/gemini"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/google"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/ratelimit"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/speech"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

type appConf = configmanager.AppConfig

// initSinks builds the call record sinks named in transcript_sinks. A sink
// that can not be reached is left out.
func initSinks(ctx context.Context, conf *appConf) (callstore.MultiSink, func()) {
	var sinks callstore.MultiSink
	var closers []func()
	for _, name := range conf.TranscriptSinks {
		switch name {
		case "logstore":
			if conf.LogStoreEndpoint == "" {
				ymlogger.LogError("InitSinks", "logstore sink configured without logstore_endpoint")
				continue
			}
			sinks = append(sinks, callstore.NewLogStore(conf.LogStoreEndpoint))
		case "amqp":
			publisher, err := queuemanager.InitRabbitMQConn(conf.QueueConnParams)
			if err != nil {
				ymlogger.LogErrorf("InitSinks", "Error while connecting to RabbitMQ. Error: [%#v]", err)
				continue
			}
			sinks = append(sinks, publisher)
			closers = append(closers, func() { publisher.Close() })
		case "mysql":
			db, err := mysql.Init(conf.MySQLConf)
			if err != nil {
				ymlogger.LogErrorf("InitSinks", "Error while connecting to MySQL. Error: [%#v]", err)
				continue
			}
			store := mysql.NewCallRecordStore(db)
			if err = store.EnsureSchema(ctx); err != nil {
				ymlogger.LogErrorf("InitSinks", "Error while creating the call_records table. Error: [%#v]", err)
				db.Close()
				continue
			}
			sinks = append(sinks, store)
			closers = append(closers, func() { db.Close() })
		case "redis":
			rdb, err := redis.NewClient(ctx, conf.RedisConf)
			if err != nil {
				ymlogger.LogErrorf("InitSinks", "Error while connecting to Redis. Error: [%#v]", err)
				continue
			}
			sinks = append(sinks, redis.NewTranscriptStore(rdb, conf.RedisConf))
			closers = append(closers, func() { rdb.Close() })
		default:
			ymlogger.LogErrorf("InitSinks", "Unknown transcript sink [%s]", name)
		}
	}
	ymlogger.LogInfof("InitSinks", "Call records go to [%d] sinks", len(sinks))
	closed := false
	return sinks, func() {
		if closed {
			return
		}
		closed = true
		for _, c := range closers {
			c()
		}
	}
}

// initCollaborators builds the speech, language and media backends of the
// conversation supervisor
func initCollaborators(
	ctx context.Context,
	conf *appConf,
	control *asterisk.Client,
	waiters *asterisk.Waiters,
) (conversation.Collaborators, func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
		closers = nil
	}
	collab := conversation.Collaborators{
		Capture: conversation.NewRecordingCapture(control, waiters, asterisk.RecordingOptions{
			Format:      conf.RecordingFormat,
			MaxDuration: configmanager.Seconds(conf.RecordingMaxDuration),
			MaxSilence:  configmanager.Seconds(conf.RecordingMaxSilence),
			Terminate:   conf.RecordingTerminationKey,
		}),
		Player: conversation.NewPlaybackPlayer(control, waiters, configmanager.Seconds(conf.PlaybackWaitSec)),
	}
	llmTimeout := time.Duration(conf.LLMTimeoutMs) * time.Millisecond

	switch conf.STTEngine {
	case "google":
		stt, err := google.NewSpeechToText(ctx, conf.GoogleCredentialsFile, conf.STTLanguage, conf.STTSampleRate)
		if err != nil {
			return collab, closeAll, err
		}
		closers = append(closers, func() { stt.Close() })
		collab.STT = stt
	case "http":
		collab.STT = speech.NewClient(conf.STTEndpoint, conf.STTLanguage, llmTimeout)
	default:
		return collab, closeAll, fmt.Errorf("unknown stt_engine %q", conf.STTEngine)
	}

	limiter := ratelimit.New(conf.LLMRequestsPerSecond, conf.LLMBurst,
		time.Duration(conf.LLMLatencyThresholdMs)*time.Millisecond, "llm")
	switch conf.LLMEngine {
	case "gemini":
		llm, err := gemini.New(ctx, gemini.Options{
			APIKey:       conf.GeminiAPIKey,
			Model:        conf.GeminiModel,
			SystemPrompt: conf.LLMSystemPrompt,
			Timeout:      llmTimeout,
		}, limiter)
		if err != nil {
			closeAll()
			return collab, func() {}, err
		}
		collab.LLM = llm
	case "http":
		collab.LLM = bothelper.NewClient(bothelper.Options{
			Endpoint:     conf.LLMEndpoint,
			AuthToken:    conf.LLMAuthToken,
			SystemPrompt: conf.LLMSystemPrompt,
			Timeout:      llmTimeout,
		}, limiter)
	default:
		closeAll()
		return collab, func() {}, fmt.Errorf("unknown llm_engine %q", conf.LLMEngine)
	}

	switch conf.TTSEngine {
	case "polly":
		tts, err := amazon.NewPolly(conf.TTSFilePath, conf.TTSVoiceID, conf.TTSFrequency)
		if err != nil {
			closeAll()
			return collab, func() {}, err
		}
		collab.TTS = tts
	case "google":
		tts, err := google.NewTextToSpeech(ctx, conf.GoogleCredentialsFile, conf.TTSFilePath, conf.TTSLanguage, conf.TTSVoiceID, int32(conf.TTSFrequency))
		if err != nil {
			closeAll()
			return collab, func() {}, err
		}
		closers = append(closers, func() { tts.Close() })
		collab.TTS = tts
	case "", "none":
		ymlogger.LogInfo("InitCollaborators", "No TTS engine, prompts play their media")
	default:
		closeAll()
		return collab, func() {}, fmt.Errorf("unknown tts_engine %q", conf.TTSEngine)
	}
	return collab, closeAll, nil
}
