package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is the slice of asynq.Client the HTTP trigger handlers
// depend on, so tests can swap in a recorder instead of a Redis client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
