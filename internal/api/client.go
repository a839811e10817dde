package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/jobs"
)

// ErrJobFailed is returned by Wait when the job ends in the error state.
var ErrJobFailed = errors.New("analysis job failed")

// Client talks to a running gaitd.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
}

// NewClient targets baseURL (e.g. http://localhost:8080). A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Submit uploads the clip at videoPath and returns the job ID.
func (c *Client) Submit(ctx context.Context, videoPath string, params jobs.Params) (string, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeSubmitForm(mw, f, filepath.Base(videoPath), params))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()
	pr.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit: %s", responseError(resp))
	}
	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("submit: empty job id")
	}
	return out.JobID, nil
}

func writeSubmitForm(mw *multipart.Writer, video io.Reader, name string, p jobs.Params) error {
	fields := map[string]string{
		"breed":      p.Breed,
		"age":        p.Age,
		"conditions": p.Conditions,
	}
	if p.WithersCM > 0 {
		fields["withers_cm"] = strconv.FormatFloat(p.WithersCM, 'f', -1, 64)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("video", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	return mw.Close()
}

// Result fetches the current status. Failed jobs come back as a
// ResultResponse with Status error, not as a Go error.
func (c *Client) Result(ctx context.Context, jobID string) (*ResultResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/result/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusInternalServerError:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	default:
		return nil, fmt.Errorf("result: %s", responseError(resp))
	}
	var out ResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if out.Status == "" {
		return nil, fmt.Errorf("result: unexpected reply (HTTP %d)", resp.StatusCode)
	}
	return &out, nil
}

// Wait polls every interval until the job finishes or ctx ends.
func (c *Client) Wait(ctx context.Context, jobID string, interval time.Duration) (*ResultResponse, error) {
	for {
		res, err := c.Result(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case jobs.StatusDone:
			return res, nil
		case jobs.StatusError:
			return res, fmt.Errorf("%w: %s", ErrJobFailed, res.Error)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func responseError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
