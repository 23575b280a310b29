// Package logger is the process-wide logrus logger. Every entry carries the
// trace id and request path found in the context, so log lines written
// while recording or flushing can be tied back to the request or span that
// caused them.
package logger

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/ncobase/lamet/ctxutil"
	"github.com/ncobase/lamet/logging/logger/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Field names added from the context
const (
	VersionKey = "version"
	TraceKey   = ctxutil.TraceIDKey
	PathKey    = "path"
)

// Logger wraps logrus with context-aware helpers.
type Logger struct {
	*logrus.Logger
	version string
	mu      sync.Mutex
	file    *dailyFile
}

var (
	stdLogger *Logger
	once      sync.Once
)

// StdLogger returns the single logger instance
func StdLogger() *Logger {
	once.Do(func() {
		stdLogger = &Logger{Logger: logrus.New()}
		stdLogger.SetFormatter(&logrus.TextFormatter{})
	})
	return stdLogger
}

// SetVersion stamps every entry with the build version.
func (l *Logger) SetVersion(v string) {
	l.version = v
}

// Init applies c and returns a func that releases the log file, if any.
func (l *Logger) Init(c *config.Config) (func(), error) {
	if c == nil {
		c = config.Default()
	}
	l.SetLevel(logrus.Level(c.Level))

	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	switch {
	case c.Output == "stderr":
		out = os.Stderr
	case c.Output == "file" && c.OutputFile != "":
		f, err := openDailyFile(c.OutputFile, nil)
		if err != nil {
			return nil, err
		}
		out = f
		l.mu.Lock()
		l.file = f
		l.mu.Unlock()
	}
	l.SetOutput(out)

	if c.Desensitization != nil && c.Desensitization.Enabled {
		l.AddHook(NewDesensitizeHook(c.Desensitization))
	}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			l.SetOutput(os.Stderr)
			_ = l.file.Close()
			l.file = nil
		}
	}, nil
}

func (l *Logger) entryFromContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if l.version != "" {
		fields[VersionKey] = l.version
	}
	if ctx == nil {
		return l.WithFields(fields)
	}

	if id := ctxutil.GetTraceID(ctx); id != "" {
		fields[TraceKey] = id
	} else if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields[TraceKey] = sc.TraceID().String()
	}
	if path, ok := ctxutil.GetRequestPath(ctx); ok {
		fields[PathKey] = path
	}
	return l.WithFields(fields)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, args ...any) {
	l.entryFromContext(ctx).Info(args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, args ...any) {
	l.entryFromContext(ctx).Warn(args...)
}

func (l *Logger) Debugf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Debugf(format, args...)
}

func (l *Logger) Infof(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Infof(format, args...)
}

func (l *Logger) Warnf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Warnf(format, args...)
}

func (l *Logger) Errorf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Errorf(format, args...)
}

// AddHook adds hook once; repeated Init calls do not stack hooks.
func (l *Logger) AddHook(hook logrus.Hook) {
	for _, hooks := range l.Hooks {
		for _, existing := range hooks {
			if existing == hook {
				return
			}
		}
	}
	l.Logger.AddHook(hook)
}

// SetVersion sets the version for logging
func SetVersion(v string) { StdLogger().SetVersion(v) }

// New initializes the standard logger
func New(c *config.Config) (func(), error) { return StdLogger().Init(c) }

// WithFields returns an entry with the context fields plus fields.
func WithFields(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return StdLogger().entryFromContext(ctx).WithFields(fields)
}

func Info(ctx context.Context, args ...any) { StdLogger().Info(ctx, args...) }

func Debugf(ctx context.Context, format string, args ...any) {
	StdLogger().Debugf(ctx, format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	StdLogger().Infof(ctx, format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	StdLogger().Warnf(ctx, format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	StdLogger().Errorf(ctx, format, args...)
}
