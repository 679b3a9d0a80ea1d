package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/motionworks/workspace/internal/model"
	"github.com/motionworks/workspace/internal/session"
	"github.com/motionworks/workspace/internal/workflow"
	"github.com/motionworks/workspace/pkg/response"
)

type WorkspaceHandler struct {
	session   *session.Session
	validator *validator.Validate
}

func NewWorkspaceHandler(sess *session.Session, v *validator.Validate) *WorkspaceHandler {
	return &WorkspaceHandler{
		session:   sess,
		validator: v,
	}
}

// Generate handles POST /workspace/generate. Validation failures abort
// before any backend call; submission failures map to 502.
func (h *WorkspaceHandler) Generate(c *fiber.Ctx) error {
	var params model.GenerateParams
	if err := c.BodyParser(&params); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&params); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID, err := h.session.StartGeneration(c.Context(), session.GenerateInput{
		Prompt:   params.Prompt,
		Segments: params.Segments,
	})
	if err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			return response.ValidationError(c, verr.Reason, nil)
		}
		return response.BackendError(c, err.Error())
	}

	return response.Accepted(c, model.GenerateResponse{
		JobID:  jobID,
		Status: model.JobStatusQueued,
	})
}

// JobStatus handles GET /workspace/jobs/:jobId
func (h *WorkspaceHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	view, ok := h.session.Job(jobID)
	if !ok {
		return response.NotFound(c, "Job not found")
	}
	return response.OK(c, view)
}

// ListJobs handles GET /workspace/jobs
func (h *WorkspaceHandler) ListJobs(c *fiber.Ctx) error {
	return response.OK(c, h.session.Jobs())
}

// CancelJob handles POST /workspace/jobs/:jobId/cancel
func (h *WorkspaceHandler) CancelJob(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if _, ok := h.session.Job(jobID); !ok {
		return response.NotFound(c, "Job not found")
	}
	if !h.session.CancelJob(jobID) {
		return response.ValidationError(c, "Job already completed", nil)
	}

	view, _ := h.session.Job(jobID)
	return response.OK(c, view)
}

// GetWorkflow handles GET /workspace/workflow
func (h *WorkspaceHandler) GetWorkflow(c *fiber.Ctx) error {
	return response.OK(c, h.session.Selector.Mode())
}

// SelectWorkflow handles POST /workspace/workflow
func (h *WorkspaceHandler) SelectWorkflow(c *fiber.Ctx) error {
	var req model.WorkflowSelectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.session.Selector.SelectWorkflow(req.Workflow); err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	return response.OK(c, h.session.Selector.Mode())
}

// ToggleSegmentMode handles POST /workspace/workflow/toggle
func (h *WorkspaceHandler) ToggleSegmentMode(c *fiber.Ctx) error {
	if _, err := h.session.Selector.ToggleSegmentMode(); err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	return response.OK(c, h.session.Selector.Mode())
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return nil
}
