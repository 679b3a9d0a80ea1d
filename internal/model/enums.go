package model

// Workflow identifies the generation mode. It decides the payload shape and
// which inputs are mandatory.
type Workflow string

const (
	WorkflowLongVideo      Workflow = "long_video"
	WorkflowTextToVideo    Workflow = "text_to_video"
	WorkflowFirstLastFrame Workflow = "first_last_frame"
)

var ValidWorkflows = []Workflow{
	WorkflowLongVideo, WorkflowTextToVideo, WorkflowFirstLastFrame,
}

// Valid reports whether w is one of the known workflows.
func (w Workflow) Valid() bool {
	switch w {
	case WorkflowLongVideo, WorkflowTextToVideo, WorkflowFirstLastFrame:
		return true
	}
	return false
}

// WorkflowMode is the active workflow plus the segment sub-mode.
// MultiSegment is only ever true for long_video.
type WorkflowMode struct {
	Workflow     Workflow `json:"workflow"`
	MultiSegment bool     `json:"multiSegment"`
}

// Job status as reported by the backend, plus the client-side terminal
// states the orchestrator synthesizes itself.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusFinished   JobStatus = "finished"
	JobStatusFailed     JobStatus = "failed"

	// Client-side only: the poll attempt cap was exhausted. The remote job
	// may still be running.
	JobStatusTimedOut JobStatus = "timed_out"

	// Client-side only: polling was revoked by the user.
	JobStatusCanceled JobStatus = "canceled"
)

// Terminal reports whether no further polling happens for this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusFinished, JobStatusFailed, JobStatusTimedOut, JobStatusCanceled:
		return true
	}
	return false
}

// Well-known image slot names.
const (
	SlotFirstFrame = "first_frame"
	SlotLastFrame  = "last_frame"
)

// SegmentCount is the fixed number of ordered prompts in a multi-segment
// long video request. Blank entries are preserved positionally.
const SegmentCount = 5
