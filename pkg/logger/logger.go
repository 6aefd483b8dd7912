package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the leveled key/value logger passed to every component.
// Arguments after the message are alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Fatal(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

type zeroLogger struct {
	zl zerolog.Logger
}

// New builds a logger writing JSON lines to stdout. Unknown levels fall back to info.
func New(level string) Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &zeroLogger{zl: zl}
}

// Nop discards everything.
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

func (l *zeroLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(normalize(keysAndValues)).Msg(msg)
}

func (l *zeroLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info().Fields(normalize(keysAndValues)).Msg(msg)
}

func (l *zeroLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn().Fields(normalize(keysAndValues)).Msg(msg)
}

func (l *zeroLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error().Fields(normalize(keysAndValues)).Msg(msg)
}

func (l *zeroLogger) Fatal(msg string, keysAndValues ...interface{}) {
	l.zl.Fatal().Fields(normalize(keysAndValues)).Msg(msg)
}

func (l *zeroLogger) With(keysAndValues ...interface{}) Logger {
	return &zeroLogger{zl: l.zl.With().Fields(normalize(keysAndValues)).Logger()}
}

// normalize pads a dangling key and stringifies durations so the JSON stays readable.
func normalize(kv []interface{}) []interface{} {
	if len(kv)%2 != 0 {
		kv = append(kv, "(missing)")
	}
	for i := 1; i < len(kv); i += 2 {
		if d, ok := kv[i].(time.Duration); ok {
			kv[i] = d.String()
		}
	}
	return kv
}
