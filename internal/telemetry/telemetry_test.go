package telemetry

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, level.Level())
	SetLevel("WARNING")
	assert.Equal(t, slog.LevelWarn, level.Level())
	SetLevel("bogus")
	assert.Equal(t, slog.LevelInfo, level.Level())
}

func TestShortScope(t *testing.T) {
	assert.Equal(t, "service", shortScope("github.com/speechcoach/coach/internal/service"))
	assert.Equal(t, "adapter/llm", shortScope("github.com/speechcoach/coach/internal/adapter/llm"))
	assert.Equal(t, "policy", shortScope("github.com/speechcoach/coach/policy"))
}

func TestMetricsCountTurns(t *testing.T) {
	m := NewMetrics()
	m.TurnFinished(OutcomeCompleted)
	m.TurnFinished(OutcomeCompleted)
	m.TurnFinished(OutcomeFailed)
	m.ObserveStage("generate", 250*time.Millisecond)
	m.SetActiveConnections(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeConnections))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "coach_stage_duration_seconds"))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.TurnFinished(OutcomeFailed)
	m.ObserveStage("generate", time.Second)
	m.SetActiveConnections(1)
}
