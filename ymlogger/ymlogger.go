package ymlogger

import (
	"strings"
	"time"
)

// LogLevel defines the severity for LOG data type
type LogLevel byte

const (
	// DEBUG for debug level statements
	DEBUG LogLevel = iota
	// INFO for info level statements
	INFO
	// WARNING for recoverable conditions that need attention
	WARNING
	// ERROR for error level statements
	ERROR
	// CRITICAL for critical level statements
	CRITICAL
)

func (logLevel LogLevel) String() string {
	switch logLevel {
	case CRITICAL:
		return "CRITICAL"
	case ERROR:
		return "ERROR"
	case WARNING:
		return "WARNING"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel returns the level for the given severity name. Unknown names map to INFO.
func ParseLevel(severity string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "CRITICAL":
		return CRITICAL
	case "ERROR":
		return ERROR
	case "WARNING", "WARN":
		return WARNING
	case "DEBUG":
		return DEBUG
	default:
		return INFO
	}
}

// BaseLoggerData holds the fields common to every record
type BaseLoggerData struct {
	CallID      string    `json:"call_id,omitempty"`
	LogTime     time.Time `json:"time"`
	ProcessName string    `json:"process"`
	Hostname    string    `json:"host"`
	ProcessID   int       `json:"pid"`
}

// LogData is a single log line
type LogData struct {
	BaseLogger BaseLoggerData `json:"base"`
	Level      string         `json:"level"`
	FileName   string         `json:"file"`
	LineNum    int            `json:"line"`
	Msg        string         `json:"msg"`
}

// LoggerConf defines the service specific config for logger
type LoggerConf struct {
	ProcessName string `json:"process_name" env:"LOG_PROCESS_NAME"`
	LogSeverity string `json:"log_severity" env:"LOG_SEVERITY"`
	LogFileName string `json:"log_file_name" env:"LOG_FILE_NAME"`
	ConsoleLog  bool   `json:"console_log" env:"LOG_CONSOLE"`
}
