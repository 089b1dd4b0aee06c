// Package logging provides the structured logger used across the storefront.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// LoggerV2 is a structured logger bound to a service name.
type LoggerV2 struct {
	zl zerolog.Logger
}

var (
	mu      sync.RWMutex
	output  io.Writer = os.Stdout
	level             = zerolog.InfoLevel
	std               = NewLoggerV2("storefront")
)

// Configure sets the process-wide level and format. Format "console" gives
// human-readable output; anything else is JSON.
func Configure(lvl, format string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(lvl))
	if err != nil || lvl == "" {
		parsed = zerolog.InfoLevel
	}

	mu.Lock()
	level = parsed
	if format == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	} else {
		output = os.Stdout
	}
	mu.Unlock()

	zerolog.SetGlobalLevel(parsed)
	std = NewLoggerV2("storefront")
}

// SetOutput redirects all loggers created afterwards to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
	std = NewLoggerV2("storefront")
}

// NewLoggerV2 creates a logger tagged with the given service name.
func NewLoggerV2(service string) *LoggerV2 {
	mu.RLock()
	w, lvl := output, level
	mu.RUnlock()

	zl := zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()
	return &LoggerV2{zl: zl}
}

// With returns a child logger that adds fields to every entry.
func (l *LoggerV2) With(fields Fields) *LoggerV2 {
	return &LoggerV2{zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger()}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) { l.emit(l.zl.Debug(), msg, fields) }

func (l *LoggerV2) Info(msg string, fields ...Fields) { l.emit(l.zl.Info(), msg, fields) }

func (l *LoggerV2) Warn(msg string, fields ...Fields) { l.emit(l.zl.Warn(), msg, fields) }

func (l *LoggerV2) Error(msg string, fields ...Fields) { l.emit(l.zl.Error(), msg, fields) }

// Fatal logs and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) { l.emit(l.zl.Fatal(), msg, fields) }

func (l *LoggerV2) emit(ev *zerolog.Event, msg string, fields []Fields) {
	for _, f := range fields {
		ev = ev.Fields(map[string]interface{}(f))
	}
	ev.Msg(msg)
}

// Info logs through the process-wide logger.
func Info(msg string, fields ...Fields) { std.Info(msg, fields...) }

// Infof logs a formatted message through the process-wide logger.
func Infof(format string, args ...interface{}) { std.Info(fmt.Sprintf(format, args...)) }

// Errorf logs a formatted error message through the process-wide logger.
func Errorf(format string, args ...interface{}) { std.Error(fmt.Sprintf(format, args...)) }
