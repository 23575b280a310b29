package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ncobase/lamet/ctxutil"
	"github.com/ncobase/lamet/logging/logger/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := &Logger{Logger: logrus.New()}
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(buf)
	return l
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestEntryFromContextAddsTraceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.SetVersion("v1.2.3")

	ctx := ctxutil.SetTraceID(context.Background(), "abc")
	l.Infof(ctx, "flushed %d metrics", 3)

	m := decode(t, &buf)
	assert.Equal(t, "flushed 3 metrics", m["msg"])
	assert.Equal(t, "abc", m[TraceKey])
	assert.Equal(t, "v1.2.3", m[VersionKey])
}

func TestEntryFromContextWithoutTrace(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.Warn(context.Background(), "no trace")

	m := decode(t, &buf)
	_, ok := m[TraceKey]
	assert.False(t, ok)
	assert.Equal(t, "warning", m["level"])
}

func TestDesensitizeHookMasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.AddHook(NewDesensitizeHook(&config.Desensitization{
		Enabled:         true,
		SensitiveFields: []string{"password", "token"},
		CustomPatterns:  []string{`secret-\d+`},
		MaskChar:        "*",
		MaskLength:      4,
	}))

	l.WithFields(logrus.Fields{
		"user_password": "hunter2",
		"tags": map[string]any{
			"access_token": "t0k3n",
			"sql":          "select secret-42 from users",
		},
		"count": 3,
	}).Info("record")

	m := decode(t, &buf)
	assert.Equal(t, "****", m["user_password"])
	tags := m["tags"].(map[string]any)
	assert.Equal(t, "****", tags["access_token"])
	assert.Equal(t, "select **** from users", tags["sql"])
	assert.EqualValues(t, 3, m["count"])
}

func TestDesensitizerDisabled(t *testing.T) {
	d := NewDesensitizer(&config.Desensitization{Enabled: false, SensitiveFields: []string{"password"}, MaskChar: "*", MaskLength: 3})
	fields := logrus.Fields{"password": "x"}
	assert.Equal(t, fields, d.DesensitizeFields(fields))
}

func TestDesensitizerExactMatchAndErrors(t *testing.T) {
	d := NewDesensitizer(&config.Desensitization{
		Enabled:         true,
		SensitiveFields: []string{"token"},
		CustomPatterns:  []string{`pw=\w+`},
		MaskChar:        "#",
		MaskLength:      2,
		ExactFieldMatch: true,
	})
	out := d.DesensitizeFields(logrus.Fields{
		"token":      "a",
		"token_type": "bearer",
		"error":      errors.New("login pw=abc failed"),
		"list":       []string{"pw=1", "ok"},
	})
	assert.Equal(t, "##", out["token"])
	assert.Equal(t, "bearer", out["token_type"])
	assert.Equal(t, "login ## failed", out["error"])
	assert.Equal(t, []any{"##", "ok"}, out["list"])
}

func TestInitFileOutput(t *testing.T) {
	dir := t.TempDir()
	l := &Logger{Logger: logrus.New()}
	cleanup, err := l.Init(&config.Config{
		Level:      int(logrus.InfoLevel),
		Format:     "json",
		Output:     "file",
		OutputFile: filepath.Join(dir, "logs", "lamet.log"),
	})
	require.NoError(t, err)

	l.Info(context.Background(), "hello")
	cleanup()

	name := filepath.Join(dir, "logs", "lamet."+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitNilConfigUsesDefaults(t *testing.T) {
	l := &Logger{Logger: logrus.New()}
	cleanup, err := l.Init(nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestAddHookIgnoresDuplicates(t *testing.T) {
	l := &Logger{Logger: logrus.New()}
	h := NewDesensitizeHook(&config.Desensitization{Enabled: true, MaskChar: "*", MaskLength: 1})
	l.AddHook(h)
	l.AddHook(h)
	assert.Len(t, l.Hooks[logrus.InfoLevel], 1)
}

func TestEntryFromContextAddsRequestPathAndSpan(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x0a, 0x0b, 0x0c, 1},
		SpanID:  trace.SpanID{1},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ctxutil.SetRequestPath(ctx, "/orders")
	l.Infof(ctx, "recorded")

	m := decode(t, &buf)
	assert.Equal(t, sc.TraceID().String(), m[TraceKey])
	assert.Equal(t, "/orders", m[PathKey])
}

func TestDailyFileSwitchesOnNewDay(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	f, err := openDailyFile(filepath.Join(dir, "lamet.log"), func() time.Time { return now })
	require.NoError(t, err)

	_, err = f.Write([]byte("first\n"))
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = f.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	day1, err := os.ReadFile(filepath.Join(dir, "lamet.2025-06-01.log"))
	require.NoError(t, err)
	day2, err := os.ReadFile(filepath.Join(dir, "lamet.2025-06-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(day1))
	assert.Equal(t, "second\n", string(day2))

	_, err = f.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
