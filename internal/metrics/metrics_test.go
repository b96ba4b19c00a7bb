// ABOUTME: Tests for Prometheus metric recording and exposition
// ABOUTME: Verifies counters through testutil and nil-receiver safety

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recording(t *testing.T) {
	m := New()

	m.SetLiveSessions(3)
	m.SessionCreated()
	m.SessionCreated()
	m.SessionRejected()
	m.SessionsRemoved(ReasonReclaimed, 2)
	m.SessionsRemoved(ReasonDeleted, 0)
	m.Renewal(nil)
	m.Renewal(errors.New("boom"))
	m.Ask("ok", 120*time.Millisecond)
	m.Ask("rate_limited", 0)
	m.RPC("Ask", "OK")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsLive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsRejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsRemoved.WithLabelValues(ReasonReclaimed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionsRemoved.WithLabelValues(ReasonDeleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renewals.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renewals.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.asks.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcs.WithLabelValues("Ask", "OK")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SessionCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chatbot_sessions_created_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetLiveSessions(1)
		m.SessionCreated()
		m.SessionRejected()
		m.SessionsRemoved(ReasonShutdown, 1)
		m.Renewal(nil)
		m.Ask("ok", time.Second)
		m.RPC("Ask", "OK")
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
