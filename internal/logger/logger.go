package logger

import (
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger is the minimal structured logger injected into services and
// handlers.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	WithFields(fields Fields) Logger
}

// Fields are top-level keys attached to a JSON log line.
type Fields map[string]any

type gookitLogger struct {
	base   *slog.Logger
	fields Fields
}

// New builds a gookit/slog JSON console logger for the given level name.
// Unknown levels fall back to info.
func New(level string) Logger {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "" {
		name = "info"
	}
	logLevel := slog.LevelByName(name)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	formatter := slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = "2006-01-02T15:04:05"
	})
	h.SetFormatter(formatter)

	return &gookitLogger{base: slog.NewWithHandlers(h), fields: Fields{"service_name": "bongbari"}}
}

func (l *gookitLogger) record() *slog.Record {
	return l.base.WithFields(slog.M(l.fields))
}

func (l *gookitLogger) Debugf(format string, args ...any) { l.record().Debugf(format, args...) }
func (l *gookitLogger) Infof(format string, args ...any)  { l.record().Infof(format, args...) }
func (l *gookitLogger) Warnf(format string, args ...any)  { l.record().Warnf(format, args...) }
func (l *gookitLogger) Errorf(format string, args ...any) { l.record().Errorf(format, args...) }

func (l *gookitLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &gookitLogger{base: l.base, fields: merged}
}

type nopLogger struct{}

// Nop discards everything. Used by tests and optional dependencies.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debugf(string, ...any)      {}
func (nopLogger) Infof(string, ...any)       {}
func (nopLogger) Warnf(string, ...any)       {}
func (nopLogger) Errorf(string, ...any)      {}
func (n nopLogger) WithFields(Fields) Logger { return n }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
