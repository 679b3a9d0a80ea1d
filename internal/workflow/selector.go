// Package workflow holds the active generation mode and assembles validated
// generation requests from user input and captured images.
package workflow

import (
	"fmt"
	"log"
	"sync"

	"github.com/motionworks/workspace/internal/model"
)

// Selector tracks the active workflow and, for long_video, the single/multi
// segment sub-mode. Exactly one workflow is active at a time.
type Selector struct {
	mu           sync.RWMutex
	workflow     model.Workflow
	multiSegment bool
}

// NewSelector starts in long_video single-segment mode.
func NewSelector() *Selector {
	return &Selector{workflow: model.WorkflowLongVideo}
}

// SelectWorkflow switches the active workflow. Switching always resets the
// segment sub-mode to single; the toggle is unavailable outside long_video.
func (s *Selector) SelectWorkflow(w model.Workflow) error {
	if !w.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown workflow: %s", w)}
	}

	s.mu.Lock()
	s.workflow = w
	s.multiSegment = false
	s.mu.Unlock()

	log.Printf("[Workflow] Active workflow set to %s", w)
	return nil
}

// ToggleSegmentMode flips single/multi for long_video and reports the new
// multi-segment flag. It is disallowed for other workflows.
func (s *Selector) ToggleSegmentMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workflow != model.WorkflowLongVideo {
		return false, &ValidationError{Reason: "segment mode is only available for long_video"}
	}

	s.multiSegment = !s.multiSegment
	log.Printf("[Workflow] Multi-segment mode: %v", s.multiSegment)
	return s.multiSegment, nil
}

// Mode returns the mode read at submission time.
func (s *Selector) Mode() model.WorkflowMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.WorkflowMode{Workflow: s.workflow, MultiSegment: s.multiSegment}
}
