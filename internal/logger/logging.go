// Package logger builds prefixed charmbracelet/log loggers. Everything goes to
// stderr because stdout carries the IPC stream.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var output io.Writer = os.Stderr

// SetOutput redirects loggers created afterwards.
func SetOutput(w io.Writer) {
	output = w
}

// New creates a prefixed logger that follows the global log level.
func New(prefix string) *log.Logger {
	level := log.GetLevel()
	return NewWithConfig(prefix, level, false, level <= log.DebugLevel, log.TextFormatter)
}

// NewWithConfig creates a charm log with custom config
func NewWithConfig(prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(output, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// Configure sets up the global logger: debug enables timestamps and the
// debug level, otherwise only warnings and errors are shown.
func Configure(debug bool) {
	log.SetOutput(output)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
}
