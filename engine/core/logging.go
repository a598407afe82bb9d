package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Epoch 📦 ",
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// SetLogLevel changes the minimum level printed by the engine logger.
func SetLogLevel(level LogLevel) {
	var l log.Level
	switch level {
	case DebugLevel:
		l = log.DebugLevel
	case InfoLevel:
		l = log.InfoLevel
	case WarnLevel:
		l = log.WarnLevel
	case ErrorLevel:
		l = log.ErrorLevel
	default:
		l = log.FatalLevel
	}
	getLogger().SetLevel(l)
}

// SetLogOutput redirects the engine logger, stderr by default.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// ParseLogLevel maps a flag value ("debug", "info", ...) to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	l, err := log.ParseLevel(s)
	if err != nil {
		return InfoLevel, err
	}
	switch l {
	case log.DebugLevel:
		return DebugLevel, nil
	case log.InfoLevel:
		return InfoLevel, nil
	case log.WarnLevel:
		return WarnLevel, nil
	case log.ErrorLevel:
		return ErrorLevel, nil
	default:
		return FatalLevel, nil
	}
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Helper()
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Helper()
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Helper()
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Helper()
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Helper()
	getLogger().Fatalf(msg, args...)
}
