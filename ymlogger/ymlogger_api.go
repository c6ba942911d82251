package ymlogger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// muLogger serializes writes and guards the sink settings below
var muLogger sync.Mutex
var logger io.Writer

var (
	processName string
	logSeverity = DEBUG
	logFileName string
	hostname    string
	processID   int
	consoleLog  bool
)

// LogError logs all the error level statments
func LogError(callID string, v ...interface{}) {
	Log(callID, 2, ERROR, v...)
}

// LogCritical logs all the critical level statements
func LogCritical(callID string, v ...interface{}) {
	Log(callID, 2, CRITICAL, v...)
}

// LogWarning logs all the warning level statements
func LogWarning(callID string, v ...interface{}) {
	Log(callID, 2, WARNING, v...)
}

// LogInfo logs all the info level statements
func LogInfo(callID string, v ...interface{}) {
	Log(callID, 2, INFO, v...)
}

// LogDebug logs all the debug level statements
func LogDebug(callID string, v ...interface{}) {
	Log(callID, 2, DEBUG, v...)
}

// LogErrorf logs all the error level statements in given format
func LogErrorf(callID string, format string, v ...interface{}) {
	Logf(callID, 2, ERROR, format, v...)
}

// LogCriticalf logs all the critical level statements in given format
func LogCriticalf(callID string, format string, v ...interface{}) {
	Logf(callID, 2, CRITICAL, format, v...)
}

// LogWarningf logs all the warning level statements in given format
func LogWarningf(callID string, format string, v ...interface{}) {
	Logf(callID, 2, WARNING, format, v...)
}

// LogInfof logs all the info level statements in given format
func LogInfof(callID string, format string, v ...interface{}) {
	Logf(callID, 2, INFO, format, v...)
}

// LogDebugf logs all the debug level statements in given format
func LogDebugf(callID string, format string, v ...interface{}) {
	Logf(callID, 2, DEBUG, format, v...)
}

// Log logs all statements without formatting
func Log(callID string, stackLevel int, logLevel LogLevel, v ...interface{}) {
	write(callID, stackLevel+1, logLevel, fmt.Sprint(v...))
}

// Logf logs all statements in the given format
func Logf(callID string, stackLevel int, logLevel LogLevel, format string, v ...interface{}) {
	write(callID, stackLevel+1, logLevel, fmt.Sprintf(format, v...))
}

func write(callID string, stackLevel int, level LogLevel, msg string) {
	muLogger.Lock()
	min := logSeverity
	muLogger.Unlock()
	if level < min {
		return
	}
	record := LogData{
		BaseLogger: BaseLoggerData{
			CallID:      callID,
			LogTime:     time.Now(),
			Hostname:    hostname,
			ProcessName: processName,
			ProcessID:   processID,
		},
		Level: level.String(),
		Msg:   msg,
	}
	if _, filename, line, ok := runtime.Caller(stackLevel); ok {
		record.FileName = filepath.Base(filename)
		record.LineNum = line
	}
	pushJSONByteStream(record)
}

func pushJSONByteStream(record LogData) {
	byteStream, err := json.Marshal(record)
	if err != nil {
		log.Println("Logger: Unable to marshal the JSON")
		return
	}
	byteStream = append(byteStream, '\n')

	muLogger.Lock()
	defer muLogger.Unlock()
	// Logging before InitYMLogger goes to stdout
	if logger == nil {
		logger = os.Stdout
	}
	if n, err := logger.Write(byteStream); err != nil {
		log.Printf("Got error while logging. Length written. %d Cause: %s", n, err.Error())
	}
}

// SetOutput redirects the log lines to w and returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	muLogger.Lock()
	defer muLogger.Unlock()
	prev := logger
	logger = w
	return prev
}

// InitYMLogger initializes the logger with service specific config
func InitYMLogger(l LoggerConf) error {
	muLogger.Lock()
	defer muLogger.Unlock()
	processName = l.ProcessName
	logFileName = l.LogFileName
	consoleLog = l.ConsoleLog
	logSeverity = ParseLevel(l.LogSeverity)
	hostname, _ = os.Hostname()
	processID = os.Getpid()
	return initConn()
}

func initConn() error {
	if logFileName == "" || consoleLog {
		logger = os.Stdout
		return nil
	}
	f, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Println("Unable to open the log file", logFileName)
		logger = os.Stdout
		return err
	}
	logger = f
	return nil
}
