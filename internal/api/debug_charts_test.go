package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/gait.report/internal/jobs"
)

func TestSignalsChart(t *testing.T) {
	e := newTestEnv(t)
	e.insert(t, "done", jobs.StatusDone)
	e.insert(t, "queued", jobs.StatusQueued)

	cases := []struct {
		path string
		want int
	}{
		{signalsChartPath + "done", http.StatusOK},
		{signalsChartPath + "queued", http.StatusNotFound},
		{signalsChartPath + "missing", http.StatusNotFound},
		{signalsChartPath, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.server.handleSignalsChart(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), "Quadrant Motion Energy")
				assert.Contains(t, rec.Body.String(), "job=done")
			}
		})
	}
}

func TestLineDataGaps(t *testing.T) {
	d := lineData([]float64{1, nan()})
	assert.Equal(t, 1.0, d[0].Value)
	assert.Equal(t, "-", d[1].Value)
}
