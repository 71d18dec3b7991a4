package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.ObserveUpload(OutcomeSuccess)
	m.ObserveUpload(OutcomeSuccess)
	m.ObserveUpload(OutcomeError)
	m.ObserveDetection(120*time.Millisecond, 3)
	m.SetActiveSessions(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.Contains(t, text, `hawkvision_uploads_total{outcome="success"} 2`)
	assert.Contains(t, text, `hawkvision_uploads_total{outcome="detection_error"} 1`)
	assert.Contains(t, text, "hawkvision_detected_objects_total 3")
	assert.Contains(t, text, "hawkvision_active_sessions 2")
	assert.Contains(t, text, "hawkvision_detection_duration_seconds_count 1")
}
