package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	scierrors "github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// Options configures the zerolog backed logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Empty means "info".
	Level string
	// Format is "json" (default) or "console".
	Format string
	// File enables size-based rotation through lumberjack when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Output overrides stdout when File is empty. Mostly for tests.
	Output io.Writer
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl     zerolog.Logger
	closer io.Closer
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger builds a logger from opts.
func NewZerologLogger(opts Options) (*ZerologLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer
	)
	switch {
	case opts.File != "":
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out, closer = rotator, rotator
	case opts.Output != nil:
		out = opts.Output
	}

	switch strings.ToLower(opts.Format) {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, NoColor: opts.File != ""}
	default:
		return nil, scierrors.NewValidationError("log.format", "must be json or console", opts.Format)
	}

	zl := zerolog.New(out).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl, closer: closer}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *ZerologLogger {
	return &ZerologLogger{zl: zerolog.Nop()}
}

// Setup builds a logger, installs it as the package default and routes
// library warnings (convergence, undefined metrics) through it.
func Setup(opts Options) (*ZerologLogger, error) {
	l, err := NewZerologLogger(opts)
	if err != nil {
		return nil, err
	}
	SetDefault(l)
	scierrors.SetZerologWarnFunc(func(w error) {
		ev := l.zl.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(w.Error())
	})
	return l, nil
}

// ParseLevel converts a textual level into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, scierrors.NewValidationError("log.level", "must be debug, info, warn or error", level)
	}
}

func toZerologLevel(l Level) zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *ZerologLogger) Debug(msg string, fields ...any) {
	applyFields(l.zl.Debug(), fields).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, fields ...any) {
	applyFields(l.zl.Info(), fields).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, fields ...any) {
	applyFields(l.zl.Warn(), fields).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields ...any) {
	applyFields(l.zl.Error(), fields).Msg(msg)
}

func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &ZerologLogger{zl: ctx.Logger(), closer: l.closer}
}

func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

// Close flushes and closes the rotating file, if any.
func (l *ZerologLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func applyFields(ev *zerolog.Event, fields []any) *zerolog.Event {
	if ev == nil {
		return ev
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = withError(ev, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			if key == ErrAttrKey {
				ev = withError(ev, v)
			} else {
				ev = ev.AnErr(key, v)
			}
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

func withError(ev *zerolog.Event, err error) *zerolog.Event {
	ev = ev.Err(err)
	if st := extractStacktrace(err); st != "" {
		ev = ev.Str(StacktraceAttrKey, st)
	}
	return ev
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = &ZerologLogger{zl: zerolog.New(os.Stderr).With().Timestamp().Logger()}
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
