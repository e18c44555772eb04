package pipeline

import (
	"time"

	"showrunner/internal/models"
)

// The production state machine. Each status has at most one outgoing
// transition; the stage named for a status is the work that moves an
// episode out of it.
var nextStatus = map[models.Status]models.Status{
	models.StatusNotStarted: models.StatusInProgress,
	models.StatusInProgress: models.StatusComplete,
	models.StatusComplete:   models.StatusLive,
	models.StatusLive:       models.StatusArchived,
}

// prevStatus is the inverse: the status a record held before its current
// one. A forced dispatch re-enters the stage that produced the current
// status without moving backward.
var prevStatus = map[models.Status]models.Status{
	models.StatusInProgress: models.StatusNotStarted,
	models.StatusComplete:   models.StatusInProgress,
	models.StatusLive:       models.StatusComplete,
	models.StatusArchived:   models.StatusLive,
}

// Next returns the status an episode advances to, or false if the current
// status is terminal.
func Next(s models.Status) (models.Status, bool) {
	n, ok := nextStatus[s]
	return n, ok
}

// Prev returns the status an episode came from, or false for the initial
// status.
func Prev(s models.Status) (models.Status, bool) {
	p, ok := prevStatus[s]
	return p, ok
}

// Guard evaluates the transition guard for an episode at the given time.
// It returns false with a reason when the episode must wait.
func Guard(ep *models.Episode, now time.Time, archiveDelay time.Duration) (bool, string) {
	switch ep.Status {
	case models.StatusNotStarted, models.StatusInProgress:
		return true, ""
	case models.StatusComplete:
		if ep.ReleaseAt == nil {
			return false, "release date not set"
		}
		if now.Before(*ep.ReleaseAt) {
			return false, "release date not reached"
		}
		return true, ""
	case models.StatusLive:
		if ep.ReleaseAt == nil {
			return false, "release date not set"
		}
		if now.Sub(*ep.ReleaseAt) < archiveDelay {
			return false, "archive delay not elapsed"
		}
		return true, ""
	case models.StatusArchived:
		return false, "episode is archived"
	}
	return false, "unknown status"
}
