package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/motionworks/workspace/internal/client"
	"github.com/motionworks/workspace/internal/config"
	"github.com/motionworks/workspace/internal/model"
	"github.com/motionworks/workspace/internal/workflow"
)

// fakeBackend is an in-memory generation backend: jobs advance one status
// step per poll.
type fakeBackend struct {
	mu       sync.Mutex
	statuses []model.StatusResponse
	polls    int
	submits  int
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/generate":
			f.submits++
			json.NewEncoder(w).Encode(model.SubmitResponse{JobID: "job-1", Status: model.JobStatusQueued})
		case strings.HasPrefix(r.URL.Path, "/api/status/"):
			idx := f.polls
			f.polls++
			if idx >= len(f.statuses) {
				idx = len(f.statuses) - 1
			}
			json.NewEncoder(w).Encode(f.statuses[idx])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeBackend) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func newTestSession(t *testing.T, baseURL string) *Session {
	t.Helper()
	return New(&config.BackendConfig{
		BaseURL:      baseURL,
		PollInterval: time.Millisecond,
		MaxPolls:     50,
	}, nil)
}

func waitForTerminal(t *testing.T, s *Session, jobID string) model.JobView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, ok := s.Job(jobID)
		if ok && view.Status.Terminal() {
			return view
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return model.JobView{}
}

func TestStartGenerationHappyPath(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{
		{Status: model.JobStatusQueued},
		{Status: model.JobStatusProcessing, Progress: 40},
		{Status: model.JobStatusFinished, OutputPath: "/out/v.mp4"},
	}}
	srv := backend.server(t)

	s := newTestSession(t, srv.URL)
	if err := s.Selector.SelectWorkflow(model.WorkflowTextToVideo); err != nil {
		t.Fatal(err)
	}

	jobID, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "a cat surfing"})
	if err != nil {
		t.Fatal(err)
	}
	if jobID != "job-1" {
		t.Errorf("jobID = %q", jobID)
	}

	view := waitForTerminal(t, s, jobID)
	if view.Status != model.JobStatusFinished {
		t.Fatalf("status = %s (error=%q)", view.Status, view.Error)
	}
	if view.ResultURL != srv.URL+"/out/v.mp4" {
		t.Errorf("resultURL = %q", view.ResultURL)
	}
	if view.Progress != 100 {
		t.Errorf("progress = %d", view.Progress)
	}
}

func TestValidationFailureNeverSubmits(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{{Status: model.JobStatusQueued}}}
	srv := backend.server(t)

	s := newTestSession(t, srv.URL)
	if err := s.Selector.SelectWorkflow(model.WorkflowTextToVideo); err != nil {
		t.Fatal(err)
	}

	_, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "   "})
	var verr *workflow.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *workflow.ValidationError, got %v", err)
	}
	if backend.submitCount() != 0 {
		t.Error("validation failure must not reach the network")
	}
}

func TestSubmitFailureIsNotTracked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	if err := s.Selector.SelectWorkflow(model.WorkflowTextToVideo); err != nil {
		t.Fatal(err)
	}

	_, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "a cat"})
	var serr *client.SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *client.SubmitError, got %v", err)
	}
	if len(s.Jobs()) != 0 {
		t.Error("a failed submission must not enter polling")
	}
}

func TestFailedJobKeepsServiceError(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{
		{Status: model.JobStatusFailed, Error: "worker crashed"},
	}}
	srv := backend.server(t)

	s := newTestSession(t, srv.URL)
	if err := s.Selector.SelectWorkflow(model.WorkflowTextToVideo); err != nil {
		t.Fatal(err)
	}

	jobID, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "a cat"})
	if err != nil {
		t.Fatal(err)
	}

	view := waitForTerminal(t, s, jobID)
	if view.Status != model.JobStatusFailed || view.Error != "worker crashed" {
		t.Errorf("view = %+v", view)
	}
}

func TestCancelJobStopsPolling(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{
		{Status: model.JobStatusProcessing, Progress: 10},
	}}
	srv := backend.server(t)

	s := New(&config.BackendConfig{
		BaseURL:      srv.URL,
		PollInterval: 10 * time.Millisecond,
		MaxPolls:     10000,
	}, nil)
	if err := s.Selector.SelectWorkflow(model.WorkflowTextToVideo); err != nil {
		t.Fatal(err)
	}

	jobID, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "a cat"})
	if err != nil {
		t.Fatal(err)
	}

	if !s.CancelJob(jobID) {
		t.Fatal("expected cancel to succeed")
	}
	view, _ := s.Job(jobID)
	if view.Status != model.JobStatusCanceled {
		t.Errorf("status = %s", view.Status)
	}

	// Terminal state sticks: late poll callbacks must not resurrect the job.
	time.Sleep(50 * time.Millisecond)
	view, _ = s.Job(jobID)
	if view.Status != model.JobStatusCanceled {
		t.Errorf("canceled job was overwritten to %s", view.Status)
	}

	if s.CancelJob(jobID) {
		t.Error("canceling a terminal job must be a no-op")
	}
}

func TestTimeoutIsDistinctTerminalState(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{
		{Status: model.JobStatusProcessing, Progress: 50},
	}}
	srv := backend.server(t)

	s := New(&config.BackendConfig{
		BaseURL:      srv.URL,
		PollInterval: time.Millisecond,
		MaxPolls:     3,
	}, nil)
	if err := s.Selector.SelectWorkflow(model.WorkflowTextToVideo); err != nil {
		t.Fatal(err)
	}

	jobID, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "a cat"})
	if err != nil {
		t.Fatal(err)
	}

	view := waitForTerminal(t, s, jobID)
	if view.Status != model.JobStatusTimedOut {
		t.Errorf("status = %s", view.Status)
	}
}

func TestSnapshotIsolationDuringBuild(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{
		{Status: model.JobStatusFinished, OutputPath: "/out/v.mp4"},
	}}
	srv := backend.server(t)

	s := newTestSession(t, srv.URL)
	// long_video single mode merges any filled slot.
	if _, err := s.Images.Set("shot_0", "image/png", strings.NewReader("img")); err != nil {
		t.Fatal(err)
	}

	jobID, err := s.StartGeneration(context.Background(), GenerateInput{Prompt: "pan left"})
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the store after submission must not disturb the job.
	s.Images.Clear("shot_0")
	view := waitForTerminal(t, s, jobID)
	if view.Status != model.JobStatusFinished {
		t.Errorf("status = %s", view.Status)
	}
}

func TestUnknownJobLookup(t *testing.T) {
	backend := &fakeBackend{statuses: []model.StatusResponse{{Status: model.JobStatusQueued}}}
	srv := backend.server(t)

	s := newTestSession(t, srv.URL)
	if _, ok := s.Job("nope"); ok {
		t.Error("unknown job must not be found")
	}
	if s.CancelJob("nope") {
		t.Error("canceling an unknown job must fail")
	}
}
