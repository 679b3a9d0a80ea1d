// Package session owns all workspace state for one user session: the image
// slot store, the active workflow, the backend client, and the jobs started
// from it. Nothing here is ambient or persisted; every component receives
// the session it works on.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/motionworks/workspace/internal/client"
	"github.com/motionworks/workspace/internal/config"
	"github.com/motionworks/workspace/internal/imagestore"
	"github.com/motionworks/workspace/internal/model"
	"github.com/motionworks/workspace/internal/websocket"
	"github.com/motionworks/workspace/internal/workflow"
)

// GenerateInput is the user input read at submission time.
type GenerateInput struct {
	Prompt   string
	Segments []string
}

// jobState tracks one submitted job through its polling lifecycle.
type jobState struct {
	view   model.JobView
	cancel context.CancelFunc
}

// Session is the workspace context object.
type Session struct {
	ID       string
	Images   *imagestore.Store
	Selector *workflow.Selector

	backend *client.GenerateClient
	hub     *websocket.Hub

	mu   sync.RWMutex
	jobs map[string]*jobState
}

// New creates a session. hub may be nil when no UI push channel exists
// (tests, CLI use).
func New(cfg *config.BackendConfig, hub *websocket.Hub) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Images:   imagestore.New(),
		Selector: workflow.NewSelector(),
		backend:  client.NewGenerateClient(cfg),
		hub:      hub,
		jobs:     make(map[string]*jobState),
	}
}

// StartGeneration builds the payload for the current mode, submits it, and
// starts the polling loop in the background. The image snapshot is taken
// before submission, so later slot changes cannot affect this job. Returns
// a *workflow.ValidationError before any network call, or a submit error.
func (s *Session) StartGeneration(ctx context.Context, in GenerateInput) (string, error) {
	mode := s.Selector.Mode()

	req, err := workflow.BuildRequest(mode, in.Prompt, in.Segments, s.Images.Snapshot())
	if err != nil {
		return "", err
	}

	jobID, err := s.backend.Submit(ctx, req)
	if err != nil {
		return "", err
	}

	now := time.Now()
	pollCtx, cancel := context.WithCancel(context.Background())
	state := &jobState{
		view: model.JobView{
			JobID:     jobID,
			Status:    model.JobStatusQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.jobs[jobID] = state
	s.mu.Unlock()

	go func() {
		defer cancel()
		if err := s.backend.Poll(pollCtx, jobID, &jobPresenter{session: s, jobID: jobID}); err != nil {
			// Polling was revoked; CancelJob already recorded the state.
			log.Printf("[Session %s] Polling for job %s stopped: %v", s.ID, jobID, err)
		}
	}()

	return jobID, nil
}

// Job returns the tracked state of a job started in this session.
func (s *Session) Job(jobID string) (model.JobView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.jobs[jobID]
	if !ok {
		return model.JobView{}, false
	}
	return state.view, true
}

// Jobs returns the tracked state of every job in this session.
func (s *Session) Jobs() []model.JobView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]model.JobView, 0, len(s.jobs))
	for _, state := range s.jobs {
		views = append(views, state.view)
	}
	return views
}

// CancelJob revokes the polling loop of a non-terminal job and marks it
// canceled. Canceling an already-terminal job is a no-op returning false.
func (s *Session) CancelJob(jobID string) bool {
	s.mu.Lock()
	state, ok := s.jobs[jobID]
	if !ok || state.view.Status.Terminal() {
		s.mu.Unlock()
		return false
	}
	state.cancel()
	state.view.Status = model.JobStatusCanceled
	state.view.UpdatedAt = time.Now()
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.BroadcastStatus(jobID, model.JobStatusCanceled)
	}
	log.Printf("[Session %s] Job %s canceled", s.ID, jobID)
	return true
}

// update mutates a job's view unless it already reached a terminal state,
// so a late poll callback can never overwrite a terminal outcome.
func (s *Session) update(jobID string, fn func(*model.JobView)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[jobID]
	if !ok || state.view.Status.Terminal() {
		return false
	}
	fn(&state.view)
	state.view.UpdatedAt = time.Now()
	return true
}

// jobPresenter bridges client callbacks into session state and UI pushes.
type jobPresenter struct {
	session *Session
	jobID   string
}

func (p *jobPresenter) OnQueued() {
	if !p.session.update(p.jobID, func(v *model.JobView) {
		v.Status = model.JobStatusQueued
	}) {
		return
	}
	if p.session.hub != nil {
		p.session.hub.BroadcastStatus(p.jobID, model.JobStatusQueued)
	}
}

func (p *jobPresenter) OnProgress(percent int) {
	if !p.session.update(p.jobID, func(v *model.JobView) {
		v.Status = model.JobStatusProcessing
		v.Progress = percent
	}) {
		return
	}
	if p.session.hub != nil {
		p.session.hub.BroadcastProgress(p.jobID, percent)
	}
}

func (p *jobPresenter) OnFinished(resolvedURL string) {
	if !p.session.update(p.jobID, func(v *model.JobView) {
		v.Status = model.JobStatusFinished
		v.Progress = 100
		v.ResultURL = resolvedURL
	}) {
		return
	}
	if p.session.hub != nil {
		p.session.hub.BroadcastResult(p.jobID, resolvedURL)
	}
}

func (p *jobPresenter) OnFailed(reason string) {
	if !p.session.update(p.jobID, func(v *model.JobView) {
		v.Status = model.JobStatusFailed
		v.Error = reason
	}) {
		return
	}
	if p.session.hub != nil {
		p.session.hub.BroadcastError(p.jobID, "JOB_FAILED", reason)
	}
}

func (p *jobPresenter) OnTimeout() {
	if !p.session.update(p.jobID, func(v *model.JobView) {
		v.Status = model.JobStatusTimedOut
		v.Error = "timed out waiting for the backend"
	}) {
		return
	}
	if p.session.hub != nil {
		p.session.hub.BroadcastError(p.jobID, "JOB_TIMEOUT", "timed out waiting for the backend")
	}
}
