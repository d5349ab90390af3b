package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// New logs to a rotating file and, if includeStdout is set, to a console writer.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    1,
		MaxBackups: 2,
	}

	writers := []io.Writer{file}

	// Console output stays at Info and above so debug spam doesn't flood the terminal
	if includeStdout {
		console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: console},
			Level:  zerolog.InfoLevel,
		})
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level.zerolog()).
		With().Timestamp().Logger()

	return &Logger{zl: zl, closer: file}, nil
}

// NewWithWriter logs JSON lines to w.
func NewWithWriter(w io.Writer, level Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()}
}

// Nop discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying key=value on every line
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) log(ev *zerolog.Event, format string, v ...any) {
	if ev == nil {
		return
	}
	ev.Msgf(format, v...)
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (lvl Level) zerolog() zerolog.Level {
	switch lvl {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(f string, v ...any) {
	if l != nil {
		l.log(l.zl.Debug(), f, v...)
	}
}

func (l *Logger) Info(f string, v ...any) {
	if l != nil {
		l.log(l.zl.Info(), f, v...)
	}
}

func (l *Logger) Warn(f string, v ...any) {
	if l != nil {
		l.log(l.zl.Warn(), f, v...)
	}
}

func (l *Logger) Error(f string, v ...any) {
	if l != nil {
		l.log(l.zl.Error(), f, v...)
	}
}

func (l *Logger) Fatal(f string, v ...any) {
	if l != nil {
		// WithLevel keeps zerolog from exiting before the file is closed
		l.log(l.zl.WithLevel(zerolog.FatalLevel), f, v...)
		_ = l.Close()
	}
	os.Exit(1)
}

func (l *Logger) Write(p []byte) (n int, err error) {
	// Echo and other libraries often include a newline at the end
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}
