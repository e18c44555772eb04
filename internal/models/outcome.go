package models

// Outcome values for a single episode within a run.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Failure kinds, set on failed outcomes so operators can tell a record
// that needs fixing from one that will heal on the next run.
const (
	FailureTransient = "transient"
	FailurePermanent = "permanent"
)

// RunOutcome is the per-episode result of a sweep or a targeted dispatch.
type RunOutcome struct {
	Season      int    `json:"season"`
	Episode     int    `json:"episode"`
	Outcome     string `json:"outcome"`
	Reason      string `json:"reason,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`
}
