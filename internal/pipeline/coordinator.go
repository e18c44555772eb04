package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"showrunner/internal/db"
	"showrunner/internal/faults"
	"showrunner/internal/generate"
	"showrunner/internal/models"
	"showrunner/internal/storage"
)

type clock func() time.Time

// Store is the metadata-store contract the coordinator drives. The default
// implementation is the Postgres-backed db package; tests swap in a fake.
type Store interface {
	QueryByStatus(statuses ...models.Status) ([]models.Episode, error)
	Get(season, episode int) (models.Episode, error)
	Update(season, episode int, versionToken string, fields map[string]interface{}) (models.Episode, error)
}

// FeedRebuilder regenerates the syndication feed from the full record set.
type FeedRebuilder interface {
	Rebuild(ctx context.Context) error
}

// Notifier surfaces permanent failures to an operator.
type Notifier interface {
	Alert(ctx context.Context, message string)
}

// Options are the coordinator's tunables.
type Options struct {
	// ArchiveDelay is how long after release an episode stays Live before
	// the recap/archive stage becomes eligible.
	ArchiveDelay time.Duration
	// Notifier may be nil; permanent failures are then only logged.
	Notifier Notifier
	// Now defaults to time.Now. Tests pin it.
	Now func() time.Time
	// Fetch defaults to an HTTP fetch of the source media.
	Fetch SourceFetcher
}

// Coordinator selects eligible episodes, runs the stage for their status,
// applies the resulting transition and persists it.
type Coordinator struct {
	store        Store
	feed         FeedRebuilder
	notifier     Notifier
	stages       map[models.Status][]Step
	archiveDelay time.Duration
	now          clock
}

// New wires the coordinator with its step executors.
func New(store Store, svc generate.Service, adapter storage.Adapter, feed FeedRebuilder, opts Options) *Coordinator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fetch := opts.Fetch
	if fetch == nil {
		fetch = fetchSource
	}

	return &Coordinator{
		store:        store,
		feed:         feed,
		notifier:     opts.Notifier,
		archiveDelay: opts.ArchiveDelay,
		now:          now,
		stages: map[models.Status][]Step{
			models.StatusNotStarted: {&kickoffStep{svc: svc, now: now}},
			models.StatusInProgress: {&transcriptionStep{svc: svc}, &showNotesStep{svc: svc}},
			models.StatusComplete:   {&publishStep{adapter: adapter, fetch: fetch}},
			models.StatusLive:       {&recapStep{svc: svc}},
		},
	}
}

// Sweep evaluates every in-flight episode against its transition guard and
// runs the eligible ones. One episode's failure never aborts the others; a
// run may stop between episodes when the context is cancelled, never in the
// middle of one.
func (c *Coordinator) Sweep(ctx context.Context) ([]models.RunOutcome, error) {
	episodes, err := c.store.QueryByStatus(models.StatusInProgress, models.StatusComplete, models.StatusLive)
	if err != nil {
		return nil, fmt.Errorf("failed to select sweep candidates: %w", err)
	}

	log.Printf("Sweep over %d candidate episodes", len(episodes))

	outcomes := make([]models.RunOutcome, 0, len(episodes))
	feedDirty := false
	for i := range episodes {
		if ctx.Err() != nil {
			break
		}
		ep := episodes[i]

		if ok, reason := Guard(&ep, c.now(), c.archiveDelay); !ok {
			outcomes = append(outcomes, models.RunOutcome{
				Season: ep.Season, Episode: ep.Episode,
				Outcome: models.OutcomeSkipped, Reason: reason,
			})
			continue
		}

		outcome, touchedFeed := c.process(ctx, ep, false)
		feedDirty = feedDirty || touchedFeed
		outcomes = append(outcomes, outcome)
	}

	if feedDirty {
		if err := c.feed.Rebuild(ctx); err != nil {
			log.Printf("Feed regeneration failed: %v", err)
		}
	}
	return outcomes, nil
}

// Dispatch runs exactly one episode. Without force it is subject to the
// same guard as a sweep; with force it re-enters the stage that produced
// the current status, bypassing guards and artifact short-circuits, and
// never changes status.
func (c *Coordinator) Dispatch(ctx context.Context, season, episode int, force bool) models.RunOutcome {
	ep, err := c.store.Get(season, episode)
	if err != nil {
		// A missing record is an operator problem; a store outage is not.
		if errors.Is(err, db.ErrNotFound) {
			return models.RunOutcome{
				Season: season, Episode: episode,
				Outcome: models.OutcomeFailed, Reason: fmt.Sprintf("episode not found: %v", err),
				FailureKind: models.FailurePermanent,
			}
		}
		return models.RunOutcome{
			Season: season, Episode: episode,
			Outcome: models.OutcomeFailed, Reason: fmt.Sprintf("failed to load episode: %v", err),
			FailureKind: models.FailureTransient,
		}
	}

	if !force {
		if _, ok := Next(ep.Status); !ok {
			return models.RunOutcome{
				Season: season, Episode: episode,
				Outcome: models.OutcomeSkipped, Reason: "episode is archived",
			}
		}
		if ok, reason := Guard(&ep, c.now(), c.archiveDelay); !ok {
			return models.RunOutcome{
				Season: season, Episode: episode,
				Outcome: models.OutcomeSkipped, Reason: reason,
			}
		}
	}

	outcome, touchedFeed := c.process(ctx, ep, force)
	if touchedFeed {
		if err := c.feed.Rebuild(ctx); err != nil {
			log.Printf("Feed regeneration failed: %v", err)
		}
	}
	return outcome
}

// process runs the stage for one episode. Each executor's fields are
// persisted as soon as it succeeds, so a later executor's failure cannot
// discard an earlier artifact and repeat its remote work on the next run.
// The status advances only with the stage's final update. It reports
// whether the feed must be regenerated.
func (c *Coordinator) process(ctx context.Context, ep models.Episode, force bool) (models.RunOutcome, bool) {
	stageStatus := ep.Status
	if force {
		prev, ok := Prev(ep.Status)
		if !ok {
			return models.RunOutcome{
				Season: ep.Season, Episode: ep.Episode,
				Outcome: models.OutcomeSkipped, Reason: "nothing to re-run",
			}, false
		}
		stageStatus = prev
	}

	next, hasNext := Next(ep.Status)

	steps := c.stages[stageStatus]
	for i, step := range steps {
		fields, err := step.Run(ctx, &ep, force)
		if err != nil {
			return c.failure(ctx, &ep, step.Name(), err), false
		}

		if i == len(steps)-1 && !force && hasNext {
			if fields == nil {
				fields = map[string]interface{}{}
			}
			fields["status"] = string(next)
		}
		if len(fields) == 0 {
			continue
		}

		updated, err := c.store.Update(ep.Season, ep.Episode, ep.VersionToken, fields)
		if err != nil {
			if errors.Is(err, db.ErrConflict) {
				err = faults.Transient(err)
			}
			return c.failure(ctx, &ep, "persist", err), false
		}
		ep.VersionToken = updated.VersionToken
	}

	if !force && hasNext {
		ep.Status = next
	}

	log.Printf("Episode s%02de%03d: stage %s done, status %s", ep.Season, ep.Episode, stageStatus, ep.Status)

	touchedFeed := ep.Status == models.StatusLive || ep.Status == models.StatusArchived
	return models.RunOutcome{
		Season: ep.Season, Episode: ep.Episode,
		Outcome: models.OutcomeSuccess,
	}, touchedFeed
}

func (c *Coordinator) failure(ctx context.Context, ep *models.Episode, stepName string, err error) models.RunOutcome {
	kind := models.FailureTransient
	if faults.IsPermanent(err) {
		kind = models.FailurePermanent
		msg := fmt.Sprintf("Episode s%02de%03d is stuck: %s failed permanently: %v", ep.Season, ep.Episode, stepName, err)
		if c.notifier != nil {
			c.notifier.Alert(ctx, msg)
		}
	}
	log.Printf("Episode s%02de%03d: %s failed (%s): %v", ep.Season, ep.Episode, stepName, kind, err)

	return models.RunOutcome{
		Season: ep.Season, Episode: ep.Episode,
		Outcome:     models.OutcomeFailed,
		Reason:      fmt.Sprintf("%s: %v", stepName, err),
		FailureKind: kind,
	}
}
