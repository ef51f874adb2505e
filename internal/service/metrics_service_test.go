package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

func TestMetricsServiceObserveSyncRun(t *testing.T) {
	m := NewMetricsService()
	report := &models.SyncReport{UnitID: "unit-1", Rows: []models.SyncResultRow{
		{Status: models.SyncStatusSuccess},
		{Status: models.SyncStatusSuccess},
		{Status: models.SyncStatusFailed},
	}}

	m.ObserveSyncRun(SyncOutcomeCompleted, report, 3*time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.syncRuns.WithLabelValues(SyncOutcomeCompleted)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.syncRows.WithLabelValues(string(models.SyncStatusSuccess))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.syncRows.WithLabelValues(string(models.SyncStatusFailed))))
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/lms/endpoint", http.StatusOK, 10*time.Millisecond)
	m.ObserveOAuthCallback("success")
	m.RecordJobEnqueued()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "http_requests_total"))
	assert.True(t, strings.Contains(body, "lms_oauth_callbacks_total"))
	assert.True(t, strings.Contains(body, "gradesync_jobs_enqueued_total 1"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.ObserveSyncRun(SyncOutcomeFailed, nil, time.Second)
	m.ObserveBackoff(time.Second)
	m.ObserveOAuthCallback("failure")
	m.RecordJobEnqueued()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
