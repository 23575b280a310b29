package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	tel := New()

	tel.Recorded("counter")
	tel.Recorded("counter")
	tel.Recorded("timer")
	tel.Ignored(ReasonPath)
	tel.CASRetry()
	tel.CASExhausted()
	tel.Flushed(ResultOK, 3, time.Second)
	tel.Flushed(ResultError, 10, time.Second)
	tel.Cleaned(7)
	tel.ExportFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(tel.records.WithLabelValues("counter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.records.WithLabelValues("timer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.ignored.WithLabelValues(ReasonPath)))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.casRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.casExhausted))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.flushes.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.flushes.WithLabelValues(ResultError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(tel.flushed), "failed flushes persist nothing")
	assert.Equal(t, 7.0, testutil.ToFloat64(tel.cleaned))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.exportFailures))
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry
	assert.NotPanics(t, func() {
		tel.Recorded("counter")
		tel.Ignored(ReasonQuery)
		tel.CASRetry()
		tel.CASExhausted()
		tel.Flushed(ResultOK, 1, time.Second)
		tel.Cleaned(1)
		tel.ExportFailed()
	})
	assert.Nil(t, tel.Registry())

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	tel := New()
	tel.Recorded("gauge")

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `lamet_records_total{kind="gauge"} 1`), body)
	assert.Contains(t, body, `lamet_flush_total{result="skipped"} 0`)
	assert.Contains(t, body, "go_goroutines")
}

func TestTracer(t *testing.T) {
	assert.NotNil(t, Tracer())
}
