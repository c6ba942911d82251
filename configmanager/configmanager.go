package configmanager

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/metrics"
	"bitbucket.org/yellowmessenger/voice-orchestrator/models/mysql"
	"bitbucket.org/yellowmessenger/voice-orchestrator/models/redis"
	"bitbucket.org/yellowmessenger/voice-orchestrator/queuemanager"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prompt is a caller facing line. Text is synthesized when a TTS engine is
// configured, Media is played otherwise.
type Prompt struct {
	Text  string `json:"text"`
	Media string `json:"media"`
}

// WatchdogConf holds the Process Watchdog settings
type WatchdogConf struct {
	CheckIntervalSec  int      `json:"check_interval_sec" env:"WATCHDOG_CHECK_INTERVAL_SEC"`
	SettleDelaySec    int      `json:"settle_delay_sec" env:"WATCHDOG_SETTLE_DELAY_SEC"`
	RecheckDelaySec   int      `json:"recheck_delay_sec" env:"WATCHDOG_RECHECK_DELAY_SEC"`
	StartupGraceSec   int      `json:"startup_grace_sec" env:"WATCHDOG_STARTUP_GRACE_SEC"`
	MaxRestarts       int      `json:"max_restarts" env:"WATCHDOG_MAX_RESTARTS"`
	RestartWindowSec  int      `json:"restart_window_sec" env:"WATCHDOG_RESTART_WINDOW_SEC"`
	ClientCommand     []string `json:"client_command" env:"WATCHDOG_CLIENT_COMMAND" envSeparator:" "`
	ProcessPattern    string   `json:"process_pattern" env:"WATCHDOG_PROCESS_PATTERN"`
	ClientLogFileName string   `json:"client_log_file_name" env:"WATCHDOG_CLIENT_LOG_FILE"`
}

// AppConfig is the service configuration
type AppConfig struct {
	LoggerConf      ymlogger.LoggerConf          `json:"logger_conf"`
	MetricsConf     metrics.Config               `json:"metrics_conf"`
	QueueConnParams queuemanager.QueueConnParams `json:"queue_conn_params"`
	MySQLConf       mysql.Config                 `json:"mysql_conf"`
	RedisConf       redis.Config                 `json:"redis_conf"`
	WatchdogConf    WatchdogConf                 `json:"watchdog"`

	ARIApplication  string `json:"ari_application" env:"ARI_APPLICATION"`
	ARIUsername     string `json:"ari_username" env:"ARI_USERNAME"`
	ARIPassword     string `json:"ari_password" env:"ARI_PASSWORD"`
	ARIURL          string `json:"ari_url" env:"ARI_URL"`
	ARIWebsocketURL string `json:"ari_websocket_url" env:"ARI_WEBSOCKET_URL"`

	HTTPHost string `json:"http_host" env:"HTTP_HOST"`
	HTTPPort string `json:"http_port" env:"HTTP_PORT"`

	CommandTimeoutSec  int `json:"command_timeout_sec" env:"COMMAND_TIMEOUT_SEC"`
	ReconnectDelaySec  int `json:"reconnect_delay_sec" env:"RECONNECT_DELAY_SEC"`
	CleanupTimeoutSec  int `json:"cleanup_timeout_sec" env:"CLEANUP_TIMEOUT_SEC"`
	SilenceTimeoutSec  int `json:"silence_timeout_sec" env:"SILENCE_TIMEOUT_SEC"`
	MaxCallDurationSec int `json:"max_call_duration_sec" env:"MAX_CALL_DURATION_SEC"`
	ActivityPollSec    int `json:"activity_poll_sec" env:"ACTIVITY_POLL_SEC"`
	HistoryTurns       int `json:"history_turns" env:"HISTORY_TURNS"`
	PlaybackWaitSec    int `json:"playback_wait_sec" env:"PLAYBACK_WAIT_SEC"`
	HealthPingSec      int `json:"health_ping_sec" env:"HEALTH_PING_SEC"`

	BridgeMode          string `json:"bridge_mode" env:"BRIDGE_MODE"`
	ExternalMediaHost   string `json:"external_media_host" env:"EXTERNAL_MEDIA_HOST"`
	ExternalMediaFormat string `json:"external_media_format" env:"EXTERNAL_MEDIA_FORMAT"`

	RecordingFormat         string `json:"recording_format" env:"RECORDING_FORMAT"`
	RecordingMaxSilence     int    `json:"recording_max_silence" env:"RECORDING_MAX_SILENCE"`
	RecordingMaxDuration    int    `json:"recording_max_duration" env:"RECORDING_MAX_DURATION"`
	RecordingTerminationKey string `json:"recording_termination_key" env:"RECORDING_TERMINATION_KEY"`

	Greeting           Prompt   `json:"greeting"`
	RepeatPrompt       Prompt   `json:"repeat_prompt"`
	Apology            Prompt   `json:"apology"`
	Farewell           Prompt   `json:"farewell"`
	TerminationPhrases []string `json:"termination_phrases" env:"TERMINATION_PHRASES" envSeparator:","`

	STTEngine     string `json:"stt_engine" env:"STT_ENGINE"`
	STTLanguage   string `json:"stt_language" env:"STT_LANGUAGE"`
	STTSampleRate int32  `json:"stt_sample_rate" env:"STT_SAMPLE_RATE"`
	STTEndpoint   string `json:"stt_endpoint" env:"STT_ENDPOINT"`

	LLMEngine             string  `json:"llm_engine" env:"LLM_ENGINE"`
	LLMEndpoint           string  `json:"llm_endpoint" env:"LLM_ENDPOINT"`
	LLMAuthToken          string  `json:"-" env:"LLM_AUTH_TOKEN"`
	LLMTimeoutMs          int     `json:"llm_timeout_ms" env:"LLM_TIMEOUT_MS"`
	LLMSystemPrompt       string  `json:"llm_system_prompt" env:"LLM_SYSTEM_PROMPT"`
	GeminiAPIKey          string  `json:"gemini_api_key" env:"GEMINI_API_KEY"`
	GeminiModel           string  `json:"gemini_model" env:"GEMINI_MODEL"`
	LLMRequestsPerSecond  float64 `json:"llm_requests_per_second" env:"LLM_REQUESTS_PER_SECOND"`
	LLMBurst              int     `json:"llm_burst" env:"LLM_BURST"`
	LLMLatencyThresholdMs int     `json:"llm_latency_threshold_ms" env:"LLM_LATENCY_THRESHOLD_MS"`

	TTSEngine    string `json:"tts_engine" env:"TTS_ENGINE"`
	TTSFilePath  string `json:"tts_file_path" env:"TTS_FILE_PATH"`
	TTSVoiceID   string `json:"tts_voice_id" env:"TTS_VOICE_ID"`
	TTSLanguage  string `json:"tts_language" env:"TTS_LANGUAGE"`
	TTSFrequency int    `json:"tts_frequency" env:"TTS_FREQUENCY"`

	GoogleCredentialsFile string `json:"google_credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`

	TranscriptSinks  []string `json:"transcript_sinks" env:"TRANSCRIPT_SINKS" envSeparator:","`
	LogStoreEndpoint string   `json:"logstore_endpoint" env:"LOGSTORE_ENDPOINT"`

	DefaultRegion   string `json:"default_region" env:"DEFAULT_REGION"`
	NewRelicAppName string `json:"newrelic_app_name" env:"NEW_RELIC_APP_NAME"`
	NewRelicLicense string `json:"-" env:"NEW_RELIC_LICENSE_KEY"`
}

// ConfStore stores the configuration variables
var ConfStore *AppConfig

// InitConfig loads .env (if present), the JSON file (if present), fills the
// defaults and finally applies environment overrides.
func InitConfig(
	fileName string,
) error {
	conf, err := Load(fileName)
	if err != nil {
		return err
	}
	ConfStore = conf
	return nil
}

// Load builds a config without touching ConfStore
func Load(fileName string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	conf := new(AppConfig)
	if fileName != "" {
		data, err := os.ReadFile(fileName)
		switch {
		case err == nil:
			if err = json.Unmarshal(data, conf); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
			ymlogger.LogWarningf("InitConfig", "Config file [%s] not found, using defaults and environment", fileName)
		default:
			return nil, err
		}
	}
	conf.applyDefaults()
	if err := env.Parse(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *AppConfig) applyDefaults() {
	setString(&c.ARIApplication, "voice-agent")
	setString(&c.ARIURL, "http://localhost:8088/ari")
	setString(&c.ARIWebsocketURL, "ws://localhost:8088/ari/events")
	setString(&c.HTTPHost, "0.0.0.0")
	setString(&c.HTTPPort, "9991")

	setInt(&c.CommandTimeoutSec, 10)
	setInt(&c.ReconnectDelaySec, 5)
	setInt(&c.CleanupTimeoutSec, 15)
	setInt(&c.SilenceTimeoutSec, 300)
	setInt(&c.MaxCallDurationSec, 1800)
	setInt(&c.ActivityPollSec, 5)
	setInt(&c.HistoryTurns, 10)
	setInt(&c.PlaybackWaitSec, 60)
	setInt(&c.HealthPingSec, 60)

	setString(&c.BridgeMode, "external_media")
	setString(&c.ExternalMediaHost, "127.0.0.1:7000")
	setString(&c.ExternalMediaFormat, "slin16")

	setString(&c.RecordingFormat, "wav")
	setInt(&c.RecordingMaxSilence, 2)
	setInt(&c.RecordingMaxDuration, 30)
	setString(&c.RecordingTerminationKey, "#")

	setString(&c.Greeting.Media, "sound:hello-world")
	setString(&c.RepeatPrompt.Media, "sound:pls-try-again")
	setString(&c.Apology.Media, "sound:an-error-has-occurred")
	setString(&c.Farewell.Media, "sound:goodbye")
	if len(c.TerminationPhrases) == 0 {
		c.TerminationPhrases = []string{"goodbye", "bye", "thank you", "that's all", "end call"}
	}

	setString(&c.STTEngine, "google")
	setString(&c.STTLanguage, "en-US")
	if c.STTSampleRate == 0 {
		c.STTSampleRate = 8000
	}
	setString(&c.LLMEngine, "gemini")
	setInt(&c.LLMTimeoutMs, 10000)
	setString(&c.LLMSystemPrompt, "You are a helpful voice assistant on a phone call. Keep every answer to one or two short sentences and never use formatting that cannot be spoken.")
	setString(&c.GeminiModel, "gemini-2.0-flash")
	if c.LLMRequestsPerSecond == 0 {
		c.LLMRequestsPerSecond = 5
	}
	setInt(&c.LLMBurst, 10)
	setInt(&c.LLMLatencyThresholdMs, 3000)

	setString(&c.TTSEngine, "polly")
	setString(&c.TTSFilePath, "/var/lib/asterisk/sounds/tts/")
	setString(&c.TTSVoiceID, "Joanna")
	setString(&c.TTSLanguage, "en-US")
	setInt(&c.TTSFrequency, 8000)

	setString(&c.DefaultRegion, "US")
	setString(&c.NewRelicAppName, "Voice Orchestrator")
	setString(&c.LoggerConf.ProcessName, "voice-orchestrator")

	w := &c.WatchdogConf
	setInt(&w.CheckIntervalSec, 30)
	setInt(&w.SettleDelaySec, 5)
	setInt(&w.RecheckDelaySec, 10)
	setInt(&w.StartupGraceSec, 3)
	setInt(&w.MaxRestarts, 3)
	setInt(&w.RestartWindowSec, 300)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

// Seconds converts a config value in seconds to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
