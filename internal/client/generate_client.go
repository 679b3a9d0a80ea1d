// Package client talks to the generation backend: one submission call, then
// a sequential polling loop until the job reaches a terminal state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/motionworks/workspace/internal/config"
	"github.com/motionworks/workspace/internal/model"
)

// Presenter receives the outcome of a polled job. Each terminal callback
// fires at most once per job; no polling happens after a terminal callback.
type Presenter interface {
	OnQueued()
	OnProgress(percent int)
	OnFinished(resolvedURL string)
	OnFailed(reason string)
	OnTimeout()
}

// SubmitError is a fatal submission outcome. The job never enters polling.
type SubmitError struct {
	StatusCode int
	Reason     string
}

func (e *SubmitError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// GenerateClient submits generation requests and polls job status.
type GenerateClient struct {
	httpClient   *http.Client
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
}

func NewGenerateClient(cfg *config.BackendConfig) *GenerateClient {
	return &GenerateClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
	}
}

// Submit posts the generation request and returns the backend's job id.
// A non-2xx response or a 2xx response without a job id is a *SubmitError.
func (c *GenerateClient) Submit(ctx context.Context, genReq *model.GenerationRequest) (string, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[Backend] → POST %s (workflow=%s)", url, genReq.Workflow)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Backend] ✗ POST %s — HTTP %d: %s", url, resp.StatusCode, string(respBody))
		return "", &SubmitError{StatusCode: resp.StatusCode}
	}

	var result model.SubmitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.JobID == "" {
		return "", &SubmitError{StatusCode: resp.StatusCode, Reason: "no job_id received"}
	}

	log.Printf("[Backend] Job submitted, job_id=%s", result.JobID)
	return result.JobID, nil
}

// Poll drives the fixed-interval status loop for jobID until a terminal
// state, the attempt cap, or ctx cancellation. Transient request failures
// are logged and do not stop the loop. Returns ctx.Err() on cancellation,
// nil otherwise.
func (c *GenerateClient) Poll(ctx context.Context, jobID string, p Presenter) error {
	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		status, err := c.fetchStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[Backend] Poll (job=%s) — cancelled", jobID)
				return ctx.Err()
			}
			log.Printf("[Backend] Poll #%d (job=%s) — error: %v", attempt, jobID, err)
		} else {
			log.Printf("[Backend] Poll #%d (job=%s) — status: %s (%d%%)", attempt, jobID, status.Status, status.Progress)

			switch status.Status {
			case model.JobStatusQueued:
				p.OnQueued()
			case model.JobStatusProcessing:
				p.OnProgress(status.Progress)
			case model.JobStatusFinished:
				c.finish(jobID, status, p)
				return nil
			case model.JobStatusFailed:
				reason := status.Error
				if reason == "" {
					reason = "unknown error"
				}
				p.OnFailed(reason)
				return nil
			default:
				log.Printf("[Backend] Poll #%d (job=%s) — unknown status %q, continuing", attempt, jobID, status.Status)
			}
		}

		select {
		case <-ctx.Done():
			log.Printf("[Backend] Poll (job=%s) — cancelled", jobID)
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	log.Printf("[Backend] Poll (job=%s) — gave up after %d attempts", jobID, c.maxPolls)
	p.OnTimeout()
	return nil
}

func (c *GenerateClient) fetchStatus(ctx context.Context, jobID string) (*model.StatusResponse, error) {
	url := fmt.Sprintf("%s/api/status/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var status model.StatusResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &status, nil
}

// finish resolves the output locator of a finished job. image_url wins over
// output_path; a finished job without either is surfaced as a failure.
func (c *GenerateClient) finish(jobID string, status *model.StatusResponse, p Presenter) {
	locator := status.ImageURL
	if locator == "" {
		locator = status.OutputPath
	}
	if locator == "" {
		log.Printf("[Backend] Job %s finished but returned no output locator", jobID)
		p.OnFailed("job finished but no output was returned")
		return
	}
	p.OnFinished(c.ResolveOutputURL(locator))
}

// ResolveOutputURL resolves a relative output locator against the backend
// base URL. Absolute URLs pass through untouched.
func (c *GenerateClient) ResolveOutputURL(locator string) string {
	if strings.HasPrefix(locator, "http") {
		return locator
	}
	return c.baseURL + locator
}
