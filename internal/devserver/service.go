// Package devserver is a development stand-in for the remote generation
// backend. It implements the same /api/generate and /api/status contract the
// orchestrator polls, backed by Redis job records and a simulated worker.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/motionworks/workspace/internal/model"
)

const (
	TaskTypeGenerate = "generate:process"
	QueueGenerate    = "generate"

	jobTTL = 24 * time.Hour
)

var ErrJobNotFound = errors.New("job not found")

// JobRecord is the stored state of one generation job.
type JobRecord struct {
	JobID      string          `json:"job_id"`
	Workflow   model.Workflow  `json:"workflow"`
	Status     model.JobStatus `json:"status"`
	Progress   int             `json:"progress"`
	OutputPath string          `json:"output_path,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// GenerateTaskPayload is what the queue carries to the worker.
type GenerateTaskPayload struct {
	JobID    string         `json:"jobId"`
	Workflow model.Workflow `json:"workflow"`
	Segments int            `json:"segments"`
}

// JobService manages generation job records and queueing.
type JobService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewJobService(redisClient *redis.Client, asynqClient *asynq.Client) *JobService {
	return &JobService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// CreateJob records a queued job and enqueues it for the worker.
func (s *JobService) CreateJob(ctx context.Context, req *model.GenerationRequest) (*model.SubmitResponse, error) {
	jobID := uuid.New().String()

	segments := 0
	for _, p := range req.Prompts {
		if p != "" {
			segments++
		}
	}

	record := &JobRecord{
		JobID:     jobID,
		Workflow:  req.Workflow,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := s.saveJob(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	payload, err := json.Marshal(GenerateTaskPayload{
		JobID:    jobID,
		Workflow: req.Workflow,
		Segments: segments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeGenerate, payload)
	if _, err := s.asynqClient.Enqueue(task,
		asynq.Queue(QueueGenerate),
		asynq.MaxRetry(0),
		asynq.Retention(jobTTL),
	); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.SubmitResponse{JobID: jobID, Status: model.JobStatusQueued}, nil
}

// GetStatus returns the job in the wire shape the orchestrator polls.
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.StatusResponse, error) {
	record, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.StatusResponse{
		JobID:      record.JobID,
		Status:     record.Status,
		Progress:   record.Progress,
		OutputPath: record.OutputPath,
		Error:      record.Error,
	}, nil
}

// CancelJob marks a non-terminal job canceled. The worker checks the flag
// between steps and stops.
func (s *JobService) CancelJob(ctx context.Context, jobID string) error {
	record, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if record.Status.Terminal() {
		return fmt.Errorf("cannot cancel job with status %s", record.Status)
	}

	record.Status = model.JobStatusCanceled
	record.Error = "Task cancelled by user"
	return s.saveJob(ctx, record)
}

// UpdateProgress moves a queued job to processing and records progress.
func (s *JobService) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	record, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return fmt.Errorf("job %s is already %s", jobID, record.Status)
	}

	record.Status = model.JobStatusProcessing
	record.Progress = progress
	return s.saveJob(ctx, record)
}

// FinishJob records the terminal finished state and its output path.
func (s *JobService) FinishJob(ctx context.Context, jobID, outputPath string) error {
	record, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return fmt.Errorf("job %s is already %s", jobID, record.Status)
	}

	record.Status = model.JobStatusFinished
	record.Progress = 100
	record.OutputPath = outputPath
	return s.saveJob(ctx, record)
}

// FailJob records the terminal failed state with an error message.
func (s *JobService) FailJob(ctx context.Context, jobID, errMsg string) error {
	record, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	record.Status = model.JobStatusFailed
	record.Error = errMsg
	return s.saveJob(ctx, record)
}

// IsCanceled reports whether the job was canceled by the user.
func (s *JobService) IsCanceled(ctx context.Context, jobID string) bool {
	record, err := s.getJob(ctx, jobID)
	if err != nil {
		return false
	}
	return record.Status == model.JobStatusCanceled
}

func (s *JobService) saveJob(ctx context.Context, record *JobRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:status:%s", record.JobID), data, jobTTL).Err()
}

func (s *JobService) getJob(ctx context.Context, jobID string) (*JobRecord, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:status:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var record JobRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
