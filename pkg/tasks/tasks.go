package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeSweep    = "pipeline:sweep"
	TypeDispatch = "pipeline:dispatch"
)

// DispatchTaskPayload targets exactly one episode, optionally forcing a
// re-run of the stage that produced its current status.
type DispatchTaskPayload struct {
	Season  int
	Episode int
	Force   bool
}

// NewSweepTask creates a task that evaluates every in-flight episode.
func NewSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSweep, nil), nil
}

// NewDispatchTask creates a task for a single targeted episode run.
func NewDispatchTask(season, episode int, force bool) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchTaskPayload{
		Season:  season,
		Episode: episode,
		Force:   force,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDispatch, payload), nil
}
