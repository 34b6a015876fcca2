package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acl-rts-tracker/internal/domain"
)

func TestManager_EngineCounters(t *testing.T) {
	m := NewTestManager()

	m.AssessmentRecorded("#000000")
	m.AssessmentRecorded("#000001")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterAssessments.WithLabelValues("engine")))

	m.ValidationFailed(3)
	m.ValidationFailed(0)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterValidationErrors))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.CounterRejectedFields))

	m.PhaseClassified(domain.PhaseRTSCleared, domain.SeverityPass)
	m.PhaseClassified(domain.PhaseStrength, domain.SeverityWarn)
	m.PhaseClassified(domain.PhaseStrength, domain.SeverityWarn)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterClassifications.WithLabelValues("4", "pass")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterClassifications.WithLabelValues("2", "warn")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GaugePhase.WithLabelValues("warn")))
}

func TestManager_RequestAndToolCounters(t *testing.T) {
	m := NewTestManager()

	m.ObserveRequest(http.MethodGet, "/api/v1/patients", 200, 5*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "/api/v1/patients", "200")))

	m.ToolCalled("compute_lsi", nil)
	m.ToolCalled("compute_lsi", assert.AnError)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterToolCalls.WithLabelValues("compute_lsi", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterToolCalls.WithLabelValues("compute_lsi", "error")))
}

func TestManager_Handler(t *testing.T) {
	m := NewTestManager()
	m.AssessmentRecorded("#000000")
	m.RegisterCacheStats(func() float64 { return 7 }, func() float64 { return 2 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "acl_rts_test_assessments_recorded_total")
	assert.Contains(t, body, "acl_rts_patient_cache_hits_total 7")
}
