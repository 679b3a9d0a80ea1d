package model

import "time"

// Generation request defaults. The backend treats seed=-1 as "random".
const (
	DefaultSeed        = -1
	DefaultAspectRatio = "9:16"
	DefaultModel       = "veo3"
	DefaultBatchSize   = 1
)

// GenerationRequest is the payload submitted to POST /api/generate.
// Prompt is empty in multi-segment mode; Prompts is empty otherwise.
// Images maps slot name to a data-URI encoded image and is omitted when no
// slots are filled.
type GenerationRequest struct {
	Workflow    Workflow          `json:"workflow" validate:"required,oneof=long_video text_to_video first_last_frame"`
	Prompt      string            `json:"prompt"`
	Prompts     []string          `json:"prompts"`
	Images      map[string]string `json:"images,omitempty"`
	Seed        int               `json:"seed"`
	AspectRatio string            `json:"aspect_ratio"`
	Model       string            `json:"model"`
	BatchSize   int               `json:"batch_size"`
}

// SubmitResponse is the backend's reply to a generation request.
type SubmitResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// StatusResponse is the backend's reply to GET /api/status/:jobId.
// ImageURL and OutputPath are mutually substitutable output locators;
// ImageURL wins when both are set.
type StatusResponse struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	ImageURL   string    `json:"image_url,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// GenerateParams is what the workspace UI posts to start a generation.
// Segments are only read in multi-segment mode.
type GenerateParams struct {
	Prompt   string   `json:"prompt"`
	Segments []string `json:"segments" validate:"omitempty,max=5"`
}

// GenerateResponse acknowledges an accepted generation.
type GenerateResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// WorkflowSelectRequest switches the active workflow.
type WorkflowSelectRequest struct {
	Workflow Workflow `json:"workflow" validate:"required"`
}

// SlotResponse reports the state of one image slot.
type SlotResponse struct {
	Slot     string `json:"slot"`
	HasImage bool   `json:"hasImage"`
}

// JobView is the read-back state of a tracked job.
type JobView struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	ResultURL string    `json:"resultUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
