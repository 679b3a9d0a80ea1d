package devserver

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/motionworks/workspace/internal/model"
	"github.com/motionworks/workspace/pkg/response"
)

// Handler exposes the generation backend contract over HTTP.
type Handler struct {
	jobs      *JobService
	validator *validator.Validate
}

func NewHandler(jobs *JobService, v *validator.Validate) *Handler {
	return &Handler{
		jobs:      jobs,
		validator: v,
	}
}

// Generate handles POST /api/generate
func (h *Handler) Generate(c *fiber.Ctx) error {
	var req model.GenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", nil)
	}

	hasPrompt := req.Prompt != ""
	for _, p := range req.Prompts {
		if p != "" {
			hasPrompt = true
			break
		}
	}
	if !hasPrompt {
		return response.ValidationError(c, "A prompt is required", nil)
	}

	resp, err := h.jobs.CreateJob(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, "Failed to queue generation job")
	}

	return response.Accepted(c, resp)
}

// Status handles GET /api/status/:jobId
func (h *Handler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	status, err := h.jobs.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to load job status")
	}

	return c.JSON(status)
}

// Cancel handles POST /api/cancel/:jobId
func (h *Handler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.jobs.CancelJob(c.Context(), jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ValidationError(c, err.Error(), nil)
	}

	status, err := h.jobs.GetStatus(c.Context(), jobID)
	if err != nil {
		return response.ServiceError(c, "Failed to load job status")
	}
	return c.JSON(status)
}
