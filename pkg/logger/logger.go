package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled key/value logger: log.Info("Message created", "message_id", id).
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	Fatal(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

type zeroLogger struct {
	zl zerolog.Logger
}

// New builds a console logger for development and a JSON logger otherwise.
func New(level string, env string) Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return &zeroLogger{
		zl: zerolog.New(out).Level(lvl).With().Timestamp().Logger(),
	}
}

// NewWithWriter is used by tests that want to inspect output.
func NewWithWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
	}
	return &zeroLogger{zl: zerolog.New(w).Level(lvl)}
}

func NewNop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

func (l *zeroLogger) Debug(msg string, keyvals ...interface{}) {
	l.zl.Debug().Fields(keyvals).Msg(msg)
}

func (l *zeroLogger) Info(msg string, keyvals ...interface{}) {
	l.zl.Info().Fields(keyvals).Msg(msg)
}

func (l *zeroLogger) Warn(msg string, keyvals ...interface{}) {
	l.zl.Warn().Fields(keyvals).Msg(msg)
}

func (l *zeroLogger) Error(msg string, keyvals ...interface{}) {
	l.zl.Error().Fields(keyvals).Msg(msg)
}

func (l *zeroLogger) Fatal(msg string, keyvals ...interface{}) {
	l.zl.Fatal().Fields(keyvals).Msg(msg)
}

func (l *zeroLogger) With(keyvals ...interface{}) Logger {
	return &zeroLogger{zl: l.zl.With().Fields(keyvals).Logger()}
}
