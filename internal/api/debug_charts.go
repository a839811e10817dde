package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/jobs"
)

const signalsChartPath = "/debug/gait/signals/"

// AttachDebugRoutes adds the per-job signal chart to the debug page.
func (s *Server) AttachDebugRoutes(debug *tsweb.DebugHandler) {
	debug.Handle("gait/signals/", "Quadrant energy signals of a finished job (append the job id)",
		http.HandlerFunc(s.handleSignalsChart))
}

// handleSignalsChart renders the smoothed quadrant signals of a finished
// job as an interactive line chart.
func (s *Server) handleSignalsChart(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, signalsChartPath), "/")
	if id == "" {
		httputil.BadRequest(w, "missing job id")
		return
	}
	job, err := s.jobs.Status(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		httputil.NotFound(w, "Unknown job id")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load job")
		return
	}
	if job.Status != jobs.StatusDone || job.Result == nil || job.Result.Metrics.Signals.Len() == 0 {
		httputil.NotFound(w, "no signals recorded for this job")
		return
	}

	var buf bytes.Buffer
	if err := renderSignalsChart(&buf, id, job.Result); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func renderSignalsChart(buf *bytes.Buffer, id string, res *gait.AnalysisResult) error {
	sig := res.Metrics.Signals
	fps := 1.0
	xName := "Sample"
	if res.Metrics.FPS != nil && res.Metrics.FPS.IsFinite() && res.Metrics.FPS.Float() > 0 {
		fps = res.Metrics.FPS.Float()
		xName = "Time (s)"
	}

	x := make([]string, sig.Len())
	for i := range x {
		x[i] = fmt.Sprintf("%.2f", float64(i)/fps)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gait Signals", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Quadrant Motion Energy",
			Subtitle: fmt.Sprintf("job=%s score=%.1f gsa=%s", id, res.Score, formatNumber(res.Metrics.GSA)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Energy", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries("left", lineData(sig.Left)).
		AddSeries("right", lineData(sig.Right)).
		AddSeries("top", lineData(sig.Top)).
		AddSeries("bottom", lineData(sig.Bottom)).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false), ShowSymbol: opts.Bool(false)}))
	return line.Render(buf)
}

// lineData maps non-finite samples to gaps.
func lineData(ys []float64) []opts.LineData {
	out := make([]opts.LineData, len(ys))
	for i, y := range ys {
		if gait.IsFinite(y) {
			out[i] = opts.LineData{Value: y}
		} else {
			out[i] = opts.LineData{Value: "-"}
		}
	}
	return out
}

func formatNumber(n gait.Number) string {
	if !n.IsFinite() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", n.Float())
}
