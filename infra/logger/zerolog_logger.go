package logger

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger writes to the process output set by SetOutput, stdout by
// default. APP_ENV=dev selects the human readable console format; anything
// else emits JSON lines. Every entry carries the component field.
func NewZerologLogger(component string) Logger {
	w := currentOutput()
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return NewZerologLoggerTo(w, component)
}

// NewZerologLoggerTo writes JSON lines to w.
func NewZerologLoggerTo(w io.Writer, component string) *ZerologLogger {
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

// Debugw logs fields in key order so repeated entries line up.
func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ev := l.log.Debug()
	for _, k := range keys {
		ev = ev.Interface(k, fields[k])
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
