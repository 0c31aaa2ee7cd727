package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsRecording(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePage(12, 2, 9, 1)
	m.ObservePage(8, 0, 8, 0)
	m.PageFailed()
	m.ImageResult("downloaded")
	m.ImageResult("downloaded")
	m.ImageResult("failed")
	m.RunCompleted(42*time.Second, 17)

	body := scrape(t, m)
	assert.Contains(t, body, "snowboard_pages_fetched_total 2")
	assert.Contains(t, body, "snowboard_pages_failed_total 1")
	assert.Contains(t, body, "snowboard_containers_located_total 20")
	assert.Contains(t, body, "snowboard_containers_skipped_total 2")
	assert.Contains(t, body, "snowboard_records_emitted_total 17")
	assert.Contains(t, body, "snowboard_duplicates_dropped_total 1")
	assert.Contains(t, body, `snowboard_images_total{result="downloaded"} 2`)
	assert.Contains(t, body, `snowboard_images_total{result="failed"} 1`)
	assert.Contains(t, body, "snowboard_run_duration_seconds_count 1")
	assert.Contains(t, body, "snowboard_last_run_products 17")
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePage(1, 1, 1, 1)
		m.PageFailed()
		m.ImageResult("cached")
		m.RunCompleted(time.Second, 1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewWithDefaultRegistry(t *testing.T) {
	m := New(nil)
	body := scrape(t, m)
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "snowboard_pages_fetched_total 0")
}
