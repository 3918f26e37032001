// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers don't need to import logrus for structured fields.
type Fields = logrus.Fields

// Options configures New.
type Options struct {
	// Level is a logrus level name. Empty means info.
	Level string
	// Dir enables a rotating log file in this directory when non-empty.
	Dir string
	// Output replaces stderr. Used by tests.
	Output io.Writer
	// Caller adds file:line of the call site to every entry.
	Caller bool
}

// New creates a logger writing to stderr and, if opts.Dir is set, to
// donttouch.log in that directory.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	writers := []io.Writer{out}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "donttouch.log"),
			LocalTime:  true,
			Compress:   true,
			MaxSize:    20,
			MaxAge:     14,
			MaxBackups: 3,
		})
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:        opts.Output != nil || opts.Dir != "",
		TimestampFormat: "2006-01-02 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})
	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(opts.Caller)

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
