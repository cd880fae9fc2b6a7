package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceTransitions(t *testing.T) {
	m := NewMetricsService()
	m.RecordTransition("approve", "ok")
	m.RecordTransition("approve", "ok")
	m.RecordTransition("approve", "no_seat")

	body := scrape(m)
	assert.Contains(t, body, `enrollment_transitions_total{action="approve",result="ok"} 2`)
	assert.Contains(t, body, `enrollment_transitions_total{action="approve",result="no_seat"} 1`)
}

func scrape(m *MetricsService) string {
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/offerings", 200, 5*time.Millisecond)
	m.RecordCacheLookup(true)

	body := scrape(m)
	assert.True(t, strings.Contains(body, "http_requests_total"))
	assert.True(t, strings.Contains(body, `cache_lookups_total{result="hit"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordTransition("drop", "ok")
	m.RecordCacheLookup(false)
	m.RecordFinalGrade()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
