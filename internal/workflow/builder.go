package workflow

import (
	"fmt"
	"strings"

	"github.com/motionworks/workspace/internal/model"
)

// ValidationError is a pre-submission rejection with a user-facing reason.
// It never reaches the network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// BuildRequest assembles the generation payload for the given mode, or
// returns a *ValidationError. images is a snapshot of the filled image
// slots; the caller must not mutate it afterwards.
func BuildRequest(mode model.WorkflowMode, prompt string, segments []string, images map[string]string) (*model.GenerationRequest, error) {
	req := &model.GenerationRequest{
		Workflow:    mode.Workflow,
		Prompts:     []string{},
		Seed:        model.DefaultSeed,
		AspectRatio: model.DefaultAspectRatio,
		Model:       model.DefaultModel,
		BatchSize:   model.DefaultBatchSize,
	}

	prompt = strings.TrimSpace(prompt)

	switch mode.Workflow {
	case model.WorkflowLongVideo:
		if mode.MultiSegment {
			prompts, err := normalizeSegments(segments)
			if err != nil {
				return nil, err
			}
			req.Prompts = prompts
		} else {
			if prompt == "" {
				return nil, &ValidationError{Reason: "a video prompt is required"}
			}
			req.Prompt = prompt
		}
		// Any filled slot rides along; omitted entirely when none are.
		if len(images) > 0 {
			req.Images = images
		}

	case model.WorkflowTextToVideo:
		if prompt == "" {
			return nil, &ValidationError{Reason: "a video prompt is required"}
		}
		req.Prompt = prompt

	case model.WorkflowFirstLastFrame:
		if prompt == "" {
			return nil, &ValidationError{Reason: "a video prompt is required"}
		}
		first, last := images[model.SlotFirstFrame], images[model.SlotLastFrame]
		if first == "" || last == "" {
			return nil, &ValidationError{Reason: "both first_frame and last_frame images are required"}
		}
		req.Prompt = prompt
		req.Images = map[string]string{
			model.SlotFirstFrame: first,
			model.SlotLastFrame:  last,
		}

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown workflow: %s", mode.Workflow)}
	}

	return req, nil
}

// normalizeSegments pads the segment list with blanks to exactly
// model.SegmentCount entries, preserving positions, and requires at least
// one non-empty prompt.
func normalizeSegments(segments []string) ([]string, error) {
	if len(segments) > model.SegmentCount {
		return nil, &ValidationError{Reason: fmt.Sprintf("at most %d segment prompts are allowed", model.SegmentCount)}
	}

	prompts := make([]string, model.SegmentCount)
	hasContent := false
	for i, seg := range segments {
		prompts[i] = strings.TrimSpace(seg)
		if prompts[i] != "" {
			hasContent = true
		}
	}
	if !hasContent {
		return nil, &ValidationError{Reason: "at least one segment prompt is required"}
	}
	return prompts, nil
}
