package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/jobs"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// SubmitResponse is returned by POST /api/analyze.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// ResultResponse is returned by GET /api/result/{job_id}.
type ResultResponse struct {
	Status jobs.Status          `json:"status"`
	Result *gait.AnalysisResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Health(r.Context()); err != nil {
		httputil.WriteStatusError(w, http.StatusInternalServerError, "bad", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a multipart upload: a "video" file plus optional
// withers_cm, breed, age and conditions fields.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	limit := s.jobs.MaxUploadBytes() + multipartOverhead
	if r.ContentLength > limit {
		httputil.PayloadTooLarge(w, tooLargeMessage(s.jobs.MaxUploadBytes()))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isBodyTooLarge(err) {
			httputil.PayloadTooLarge(w, tooLargeMessage(s.jobs.MaxUploadBytes()))
			return
		}
		httputil.BadRequest(w, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	params, err := parseParams(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		httputil.BadRequest(w, "missing video file")
		return
	}
	defer file.Close()

	job, err := s.jobs.Submit(r.Context(), file, header.Filename, params)
	switch {
	case errors.Is(err, jobs.ErrUploadTooLarge):
		httputil.PayloadTooLarge(w, tooLargeMessage(s.jobs.MaxUploadBytes()))
		return
	case err != nil:
		monitoring.Logf("[API] submit failed: %v", err)
		httputil.InternalServerError(w, "failed to queue analysis")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubmitResponse{JobID: job.ID})
}

func parseParams(r *http.Request) (jobs.Params, error) {
	p := jobs.Params{
		WithersCM:  jobs.DefaultWithersCM,
		Breed:      strings.TrimSpace(r.FormValue("breed")),
		Age:        strings.TrimSpace(r.FormValue("age")),
		Conditions: strings.TrimSpace(r.FormValue("conditions")),
	}
	if v := strings.TrimSpace(r.FormValue("withers_cm")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || !gait.IsFinite(f) {
			return p, fmt.Errorf("invalid withers_cm %q", v)
		}
		p.WithersCM = f
	}
	return p, nil
}

// isBodyTooLarge matches the MaxBytesReader error, which some multipart
// paths only carry as text.
func isBodyTooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large")
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("upload exceeds limit of %d MiB", limit>>20)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["job_id"]
	job, err := s.jobs.Status(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		httputil.NotFound(w, "Unknown job id")
		return
	}
	if err != nil {
		monitoring.Logf("[API] job=%s status lookup failed: %v", id, err)
		httputil.InternalServerError(w, "failed to load job")
		return
	}
	switch job.Status {
	case jobs.StatusDone:
		httputil.WriteJSON(w, http.StatusOK, ResultResponse{Status: job.Status, Result: job.Result})
	case jobs.StatusError:
		httputil.WriteStatusError(w, http.StatusInternalServerError, string(jobs.StatusError), job.Error)
	default:
		httputil.WriteJSON(w, http.StatusOK, ResultResponse{Status: job.Status})
	}
}
