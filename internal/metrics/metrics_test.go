package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/coze-template-scraper/internal/metrics"
)

func TestObserveExport(t *testing.T) {
	m := metrics.New()
	m.ObserveExport("http", metrics.ResultOK, 12, time.Second)
	m.ObserveExport("http", metrics.ResultOK, 3, time.Second)
	m.ObserveExport("http", metrics.ResultFetchError, 0, time.Second)

	expected := `
# HELP coze_records_extracted_total Template records extracted from listing pages.
# TYPE coze_records_extracted_total counter
coze_records_extracted_total{source="http"} 15
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "coze_records_extracted_total"))

	count, err := testutil.GatherAndCount(m.Registry(), "coze_exports_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveExport("file", metrics.ResultOK, 1, time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveExport("browser", metrics.ResultBusy, 0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `coze_exports_total{result="busy",source="browser"} 1`)
}
