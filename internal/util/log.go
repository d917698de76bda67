// Package util provides shared logging setup for the CLI tools.
package util

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging functions backed by pterm prefixed printers.
// All output goes to stderr by default (pterm's default). These are the
// user-facing log lines of the CLI tools; the protocol engines log through
// logrus (see SetupEngineLog).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures both loggers to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
	logrus.SetLevel(logrus.DebugLevel)
}

// SetupEngineLog configures the structured logger used by the protocol
// engines (receiver, scheduler, streamer, control). Quiet mode keeps
// per-frame noise out of interactive sessions.
func SetupEngineLog(quiet bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	if quiet {
		logrus.SetLevel(logrus.WarnLevel)
	}
}
