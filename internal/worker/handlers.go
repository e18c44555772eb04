package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"showrunner/internal/models"
	"showrunner/internal/pipeline"
	"showrunner/pkg/tasks"
)

// TaskHandler runs pipeline triggers delivered through the task queue.
type TaskHandler struct {
	coordinator *pipeline.Coordinator
}

func NewTaskHandler(coordinator *pipeline.Coordinator) *TaskHandler {
	return &TaskHandler{coordinator: coordinator}
}

// HandleSweepTask processes all eligible episodes. The sweep itself never
// fails on per-episode errors; those are isolated into the outcome list.
func (h *TaskHandler) HandleSweepTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Starting pipeline sweep...")

	outcomes, err := h.coordinator.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	logOutcomes(outcomes)
	return nil
}

// HandleDispatchTask processes one targeted episode.
func (h *TaskHandler) HandleDispatchTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.DispatchTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Dispatching episode s%02de%03d (force=%v)", p.Season, p.Episode, p.Force)

	outcome := h.coordinator.Dispatch(ctx, p.Season, p.Episode, p.Force)
	logOutcomes([]models.RunOutcome{outcome})

	// A transient failure is surfaced to asynq so the queue retries it; a
	// permanent one is not retried and waits for an operator.
	if outcome.Outcome == models.OutcomeFailed {
		if outcome.FailureKind == models.FailurePermanent {
			return fmt.Errorf("dispatch s%02de%03d failed permanently: %s: %w", p.Season, p.Episode, outcome.Reason, asynq.SkipRetry)
		}
		return fmt.Errorf("dispatch s%02de%03d failed: %s", p.Season, p.Episode, outcome.Reason)
	}
	return nil
}

func logOutcomes(outcomes []models.RunOutcome) {
	success, skipped, failed := 0, 0, 0
	for _, o := range outcomes {
		switch o.Outcome {
		case models.OutcomeSuccess:
			success++
		case models.OutcomeSkipped:
			skipped++
		case models.OutcomeFailed:
			failed++
		}
		if o.Reason != "" {
			log.Printf("Outcome s%02de%03d: %s (%s)", o.Season, o.Episode, o.Outcome, o.Reason)
		} else {
			log.Printf("Outcome s%02de%03d: %s", o.Season, o.Episode, o.Outcome)
		}
	}
	log.Printf("Run finished: %d success, %d skipped, %d failed", success, skipped, failed)
}
