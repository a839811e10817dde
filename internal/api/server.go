// Package api serves the job endpoints over HTTP: submit a clip, poll its
// status, stream status changes over a websocket, and inspect finished
// results on the debug page.
package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/jobs"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// ANSI escape codes for status colouring in request logs
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// multipartOverhead allows for form fields and part headers on top of the
// video bytes.
const multipartOverhead = 1 << 20

// Server wires the job service to HTTP handlers.
type Server struct {
	jobs     *jobs.Service
	notifier *jobs.Notifier
}

// NewServer creates a Server. notifier may be nil, in which case websocket
// clients only receive the current status.
func NewServer(svc *jobs.Service, notifier *jobs.Notifier) *Server {
	return &Server{jobs: svc, notifier: notifier}
}

// Router returns the /api routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/result/{job_id}", s.handleResult).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{job_id}/ws", s.handleJobSocket).Methods(http.MethodGet)
	// Subrouters do not inherit these from the root.
	for _, rt := range []*mux.Router{r, api} {
		rt.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.MethodNotAllowed(w)
		})
		rt.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.NotFound(w, "not found")
		})
	}
	return r
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.Router())
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets the websocket upgrade through the middleware.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[HTTP] [%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
