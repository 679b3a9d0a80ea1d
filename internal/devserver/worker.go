package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/motionworks/workspace/internal/model"
)

// GenerateWorker processes queued generation jobs with a simulated pipeline.
type GenerateWorker struct {
	jobs     *JobService
	stepTime time.Duration
}

func NewGenerateWorker(jobs *JobService, stepTime time.Duration) *GenerateWorker {
	if stepTime <= 0 {
		stepTime = 2 * time.Second
	}
	return &GenerateWorker{
		jobs:     jobs,
		stepTime: stepTime,
	}
}

// ProcessTask handles a generate task from the queue.
func (w *GenerateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload GenerateTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := payload.JobID
	log.Printf("[Worker] Starting generation job %s (%s)", jobID, payload.Workflow)

	for _, progress := range w.progressSteps(payload) {
		select {
		case <-ctx.Done():
			log.Printf("[Worker] Generation job %s interrupted", jobID)
			return ctx.Err()
		default:
		}

		if w.jobs.IsCanceled(ctx, jobID) {
			log.Printf("[Worker] Generation job %s cancelled by user", jobID)
			return nil
		}

		if err := w.jobs.UpdateProgress(ctx, jobID, progress); err != nil {
			log.Printf("[Worker] Failed to update progress for %s: %v", jobID, err)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.stepTime):
		}
	}

	if w.jobs.IsCanceled(ctx, jobID) {
		log.Printf("[Worker] Generation job %s cancelled by user", jobID)
		return nil
	}

	outputPath := fmt.Sprintf("/outputs/%s.mp4", jobID)
	if err := w.jobs.FinishJob(ctx, jobID, outputPath); err != nil {
		log.Printf("[Worker] Failed to finish job %s: %v", jobID, err)
		return nil
	}

	log.Printf("[Worker] Generation job %s finished: %s", jobID, outputPath)
	return nil
}

// progressSteps returns the simulated progress curve. Multi-segment long
// video jobs report one step per segment, other workflows use a fixed ramp.
func (w *GenerateWorker) progressSteps(payload GenerateTaskPayload) []int {
	if payload.Workflow == model.WorkflowLongVideo && payload.Segments > 1 {
		steps := make([]int, 0, payload.Segments)
		for i := 1; i <= payload.Segments; i++ {
			steps = append(steps, i*100/payload.Segments)
		}
		return steps
	}
	return []int{10, 30, 55, 80, 95}
}
