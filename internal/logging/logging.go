// Package logging configures the process-wide structured logger: JSON
// output, a caller hook, and a level read from the RAG_LOG_LEVEL
// environment variable.
package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger writing JSON to stdout, with the calling
// function and file:line attached to every entry.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	logger.SetReportCaller(true)
	logger.AddHook(&callerHook{})
	logger.SetLevel(levelFromEnv())
	return logger
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("RAG_LOG_LEVEL")) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// callerHook trims the reported caller down to "package/file.go:line" so
// log lines stay readable without the full GOPATH-relative path.
type callerHook struct{}

func (callerHook) Levels() []logrus.Level { return logrus.AllLevels }

func (callerHook) Fire(entry *logrus.Entry) error {
	if entry.Caller == nil {
		return nil
	}
	_, file, line, ok := runtime.Caller(8)
	if !ok {
		return nil
	}
	entry.Data["caller"] = filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file) + ":" + strconv.Itoa(line)
	return nil
}
