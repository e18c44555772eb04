package handlers

import (
	"showrunner/pkg/tasks"
)

// Handlers is the HTTP trigger surface. It never runs pipeline work in the
// request path; triggers are enqueued and the worker picks them up.
type Handlers struct {
	asynqClient tasks.TaskEnqueuer
	feedPath    string
	mediaDir    string
}

func New(asynqClient tasks.TaskEnqueuer, feedPath, mediaDir string) *Handlers {
	return &Handlers{
		asynqClient: asynqClient,
		feedPath:    feedPath,
		mediaDir:    mediaDir,
	}
}
