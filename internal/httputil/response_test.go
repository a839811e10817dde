package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "no file") }, http.StatusBadRequest, "no file"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "Unknown job id") }, http.StatusNotFound, "Unknown job id"},
		{"too large", func(w http.ResponseWriter) { PayloadTooLarge(w, "upload too large") }, http.StatusRequestEntityTooLarge, "upload too large"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError, "boom"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := decodeBody(t, rec)["error"]; got != tc.msg {
				t.Errorf("error = %q, want %q", got, tc.msg)
			}
		})
	}
}

func TestWriteStatusError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteStatusError(rec, http.StatusInternalServerError, "error", "input error: cannot open video")
	body := decodeBody(t, rec)
	if body["status"] != "error" || body["error"] != "input error: cannot open video" {
		t.Errorf("body = %v", body)
	}
}
