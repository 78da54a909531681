package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordRound()
	m.RecordTurn("idle", time.Millisecond)
	m.RecordTurn("idle", time.Millisecond)
	m.RecordStrategyFailure("idle", "panic")
	m.RecordSubAction("buy", true)
	m.RecordSubAction("buy", false)
	m.RecordReplica("completed", time.Second)
	m.RecordSkipped(3)
	m.RecordSkipped(0)
	m.RecordDBQuery("postgres", "insert", time.Millisecond, errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TurnsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyFailures.WithLabelValues("idle", "panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubActions.WithLabelValues("buy", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicasTotal.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReplicasTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert")))

	done := m.WorkerBusy()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkersActive))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WorkersActive))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRound()
		m.RecordTurn("x", time.Second)
		m.RecordStrategyFailure("x", "error")
		m.RecordSubAction("move", true)
		m.RecordReplica("failed", 0)
		m.RecordSkipped(2)
		m.RecordDBQuery("clickhouse", "select", 0, nil)
		m.SimulationStarted()()
		m.WorkerBusy()()
		m.StreamClientConnected()()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordRound()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_engine_rounds_total 1")
}
