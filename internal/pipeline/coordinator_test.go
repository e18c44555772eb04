package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showrunner/internal/codename"
	"showrunner/internal/db"
	"showrunner/internal/faults"
	"showrunner/internal/models"
)

const archiveDelay = 90 * 24 * time.Hour

func newTestCoordinator(store *fakeStore, svc *fakeService, adapter *fakeAdapter, feed *fakeFeed, notifier *fakeNotifier, now time.Time) *Coordinator {
	opts := Options{
		ArchiveDelay: archiveDelay,
		Now:          func() time.Time { return now },
		Fetch:        fakeFetch,
	}
	if notifier != nil {
		opts.Notifier = notifier
	}
	return New(store, svc, adapter, feed, opts)
}

func completeEpisode() models.Episode {
	return models.Episode{
		Season: 1, Episode: 1,
		Codename:       strPtr("P0D-S01-E001-AXIS-CIPHER"),
		Title:          "Zero Trust in Practice",
		Status:         models.StatusComplete,
		ReleaseAt:      timePtr(time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)),
		SourceMediaURL: strPtr("https://masters.example.com/s01e001.mp3"),
		Transcribed:    true,
		TranscriptURL:  strPtr("https://docs.example.com/transcript/s01e001"),
		ShowNotesURL:   strPtr("https://docs.example.com/notes/s01e001"),
		VersionToken:   "tok-1",
	}
}

func TestSweepPublishesDueEpisode(t *testing.T) {
	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	store := &fakeStore{episodes: []models.Episode{completeEpisode()}}
	adapter := newFakeAdapter()
	feed := &fakeFeed{}

	c := newTestCoordinator(store, &fakeService{}, adapter, feed, nil, now)
	outcomes, err := c.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeSuccess, outcomes[0].Outcome)

	require.Len(t, store.updates, 1)
	fields := store.updates[0].fields
	assert.Equal(t, string(models.StatusLive), fields["status"])
	assert.Equal(t, true, fields["published"])
	assert.Equal(t, "https://store.example.com/s01e001.mp3", fields["media_url"])
	assert.NotZero(t, fields["media_length_bytes"])

	assert.Equal(t, 1, adapter.uploads)
	assert.Equal(t, 1, feed.rebuilds, "feed must be regenerated after a publish")
}

func TestSweepSkipsEpisodeBeforeRelease(t *testing.T) {
	// Same record, evaluated the day before its release slot.
	now := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{episodes: []models.Episode{completeEpisode()}}
	adapter := newFakeAdapter()
	feed := &fakeFeed{}

	c := newTestCoordinator(store, &fakeService{}, adapter, feed, nil, now)
	outcomes, err := c.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeSkipped, outcomes[0].Outcome)
	assert.Equal(t, "release date not reached", outcomes[0].Reason)

	assert.Empty(t, store.updates)
	assert.Zero(t, adapter.uploads)
	assert.Zero(t, feed.rebuilds, "feed must stay unchanged when nothing publishes")
}

func TestSweepIsolatesPerEpisodeFailures(t *testing.T) {
	shrinkRetryDelays(t.Cleanup)

	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	broken := models.Episode{
		Season: 1, Episode: 1,
		Codename: strPtr("P0D-S01-E001-AXIS-CIPHER"),
		Title:    "Broken",
		Status:   models.StatusInProgress,
		SourceMediaURL: strPtr("https://masters.example.com/broken.mp3"),
		VersionToken:   "tok-a",
	}
	healthy := models.Episode{
		Season: 1, Episode: 2,
		Codename: strPtr("P0D-S01-E002-AXIS-ENCRYPT"),
		Title:    "Healthy",
		Status:   models.StatusInProgress,
		SourceMediaURL: strPtr("https://masters.example.com/healthy.mp3"),
		VersionToken:   "tok-b",
	}

	svc := &fakeService{failTranscribe: map[string]error{
		"https://masters.example.com/broken.mp3": faults.Transient(errors.New("upstream timeout")),
	}}
	store := &fakeStore{episodes: []models.Episode{broken, healthy}}

	c := newTestCoordinator(store, svc, newFakeAdapter(), &fakeFeed{}, nil, now)
	outcomes, err := c.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, models.OutcomeFailed, outcomes[0].Outcome)
	assert.Equal(t, models.FailureTransient, outcomes[0].FailureKind)
	assert.Equal(t, models.OutcomeSuccess, outcomes[1].Outcome, "episode B must advance despite A failing")

	// Episode B commits one update per executor; only the last one moves
	// the status.
	require.Len(t, store.updates, 2)
	assert.Equal(t, 2, store.updates[0].episode)
	assert.Equal(t, true, store.updates[0].fields["transcribed"])
	_, early := store.updates[0].fields["status"]
	assert.False(t, early, "status must not advance before the stage finishes")
	assert.Equal(t, 2, store.updates[1].episode)
	assert.Equal(t, string(models.StatusComplete), store.updates[1].fields["status"])
}

func TestStageFailureKeepsEarlierStepArtifacts(t *testing.T) {
	shrinkRetryDelays(t.Cleanup)

	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	ep := models.Episode{
		Season: 1, Episode: 1,
		Codename:       strPtr("P0D-S01-E001-AXIS-CIPHER"),
		Title:          "Interrupted",
		Status:         models.StatusInProgress,
		SourceMediaURL: strPtr("https://masters.example.com/s01e001.mp3"),
		VersionToken:   "tok-1",
	}
	svc := &fakeService{docErr: faults.Transient(errors.New("document service unavailable"))}
	store := &fakeStore{episodes: []models.Episode{ep}}

	c := newTestCoordinator(store, svc, newFakeAdapter(), &fakeFeed{}, nil, now)
	first := c.Dispatch(context.Background(), 1, 1, false)

	assert.Equal(t, models.OutcomeFailed, first.Outcome)

	// The transcript landed before show notes failed, so it is already
	// committed without a status change.
	require.Len(t, store.updates, 1)
	fields := store.updates[0].fields
	assert.Equal(t, true, fields["transcribed"])
	assert.NotEmpty(t, fields["transcript_url"])
	_, advanced := fields["status"]
	assert.False(t, advanced)

	// The next run starts from the refreshed record and must not transcribe
	// again.
	store.episodes[0].Transcribed = true
	store.episodes[0].TranscriptURL = strPtr(fields["transcript_url"].(string))
	svc.docErr = nil

	second := c.Dispatch(context.Background(), 1, 1, false)

	assert.Equal(t, models.OutcomeSuccess, second.Outcome)
	assert.Equal(t, 1, svc.transcribeCalls, "the committed transcript must not be regenerated")
	require.Len(t, store.updates, 2)
	assert.Equal(t, string(models.StatusComplete), store.updates[1].fields["status"])
}

func TestDispatchStoreOutageIsTransient(t *testing.T) {
	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	store := &fakeStore{getErr: errors.New("connection refused")}
	notifier := &fakeNotifier{}

	c := newTestCoordinator(store, &fakeService{}, newFakeAdapter(), &fakeFeed{}, notifier, now)
	outcome := c.Dispatch(context.Background(), 1, 1, false)

	assert.Equal(t, models.OutcomeFailed, outcome.Outcome)
	assert.Equal(t, models.FailureTransient, outcome.FailureKind, "a store outage must stay retryable")
	assert.Empty(t, notifier.alerts)
}

func TestDispatchKickoffAssignsCodenameAndSchedule(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) // Monday
	ep := models.Episode{
		Season: 1, Episode: 1,
		Title:        "Pilot",
		Status:       models.StatusNotStarted,
		PromptInput:  strPtr("Discuss the basics of network segmentation."),
		VersionToken: "tok-1",
	}
	store := &fakeStore{episodes: []models.Episode{ep}}

	c := newTestCoordinator(store, &fakeService{}, newFakeAdapter(), &fakeFeed{}, nil, now)
	outcome := c.Dispatch(context.Background(), 1, 1, false)

	assert.Equal(t, models.OutcomeSuccess, outcome.Outcome)
	require.Len(t, store.updates, 1)
	fields := store.updates[0].fields

	assert.Equal(t, codename.Generate(1, 1), fields["codename"])
	assert.Equal(t, time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC), fields["release_at"])
	assert.Contains(t, fields["script_url"], "Script")
	assert.Equal(t, string(models.StatusInProgress), fields["status"])
}

func TestDispatchKickoffKeepsExistingCodename(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ep := models.Episode{
		Season: 2, Episode: 5,
		Codename:     strPtr("P0D-S02-E005-AXIS-LEGACY"),
		Title:        "Carried Over",
		Status:       models.StatusNotStarted,
		ReleaseAt:    timePtr(time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC)),
		VersionToken: "tok-1",
	}
	store := &fakeStore{episodes: []models.Episode{ep}}

	c := newTestCoordinator(store, &fakeService{}, newFakeAdapter(), &fakeFeed{}, nil, now)
	outcome := c.Dispatch(context.Background(), 2, 5, false)

	assert.Equal(t, models.OutcomeSuccess, outcome.Outcome)
	require.Len(t, store.updates, 1)
	_, reassigned := store.updates[0].fields["codename"]
	assert.False(t, reassigned, "an assigned codename is never regenerated")
}

func TestDispatchForceRepublishKeepsStatus(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	ep := completeEpisode()
	ep.Status = models.StatusLive
	ep.Published = true
	ep.MediaURL = strPtr("https://store.example.com/s01e001.mp3")
	ep.MediaLengthBytes = new(int64)
	ep.MediaMIMEType = strPtr("audio/mpeg")

	adapter := newFakeAdapter()
	feed := &fakeFeed{}
	store := &fakeStore{episodes: []models.Episode{ep}}

	c := newTestCoordinator(store, &fakeService{}, adapter, feed, nil, now)
	outcome := c.Dispatch(context.Background(), 1, 1, true)

	assert.Equal(t, models.OutcomeSuccess, outcome.Outcome)
	require.Len(t, store.updates, 1)
	fields := store.updates[0].fields
	_, changedStatus := fields["status"]
	assert.False(t, changedStatus, "force never changes status")
	assert.Equal(t, true, fields["published"])
	assert.Equal(t, 1, feed.rebuilds, "a forced republish refreshes the feed")
}

func TestDispatchPublishTwiceResolvesSameObject(t *testing.T) {
	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	adapter := newFakeAdapter()
	store := &fakeStore{episodes: []models.Episode{completeEpisode()}}

	c := newTestCoordinator(store, &fakeService{}, adapter, &fakeFeed{}, nil, now)

	first := c.Dispatch(context.Background(), 1, 1, false)
	require.Equal(t, models.OutcomeSuccess, first.Outcome)

	// Simulated replay: the record was not refreshed, so the episode is
	// published again from the same state.
	second := c.Dispatch(context.Background(), 1, 1, false)
	require.Equal(t, models.OutcomeSuccess, second.Outcome)

	assert.Equal(t, 1, adapter.uploads, "the second publish must reuse the stored object")
	require.Len(t, store.updates, 2)
	assert.Equal(t, store.updates[0].fields["media_url"], store.updates[1].fields["media_url"])
	assert.Equal(t, store.updates[0].fields["media_length_bytes"], store.updates[1].fields["media_length_bytes"])
}

func TestDispatchVersionConflictIsTransient(t *testing.T) {
	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	store := &fakeStore{
		episodes:  []models.Episode{completeEpisode()},
		updateErr: db.ErrConflict,
	}

	c := newTestCoordinator(store, &fakeService{}, newFakeAdapter(), &fakeFeed{}, nil, now)
	outcome := c.Dispatch(context.Background(), 1, 1, false)

	assert.Equal(t, models.OutcomeFailed, outcome.Outcome)
	assert.Equal(t, models.FailureTransient, outcome.FailureKind)
}

func TestDispatchArchivesAfterDelay(t *testing.T) {
	release := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)
	now := release.Add(archiveDelay + time.Hour)

	ep := completeEpisode()
	ep.Status = models.StatusLive
	ep.Published = true
	ep.ReleaseAt = &release

	feed := &fakeFeed{}
	store := &fakeStore{episodes: []models.Episode{ep}}

	c := newTestCoordinator(store, &fakeService{}, newFakeAdapter(), feed, nil, now)
	outcome := c.Dispatch(context.Background(), 1, 1, false)

	assert.Equal(t, models.OutcomeSuccess, outcome.Outcome)
	require.Len(t, store.updates, 1)
	fields := store.updates[0].fields
	assert.Equal(t, string(models.StatusArchived), fields["status"])
	assert.Equal(t, true, fields["recap_generated"])
	assert.Equal(t, true, fields["archived"])
	assert.Equal(t, 1, feed.rebuilds, "archiving refreshes the feed")
}

func TestPermanentFailureAlertsOperator(t *testing.T) {
	now := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	ep := models.Episode{
		Season: 1, Episode: 3,
		Title:        "No Master Audio",
		Status:       models.StatusInProgress,
		VersionToken: "tok-1",
	}
	notifier := &fakeNotifier{}
	store := &fakeStore{episodes: []models.Episode{ep}}

	c := newTestCoordinator(store, &fakeService{}, newFakeAdapter(), &fakeFeed{}, notifier, now)
	outcome := c.Dispatch(context.Background(), 1, 3, false)

	assert.Equal(t, models.OutcomeFailed, outcome.Outcome)
	assert.Equal(t, models.FailurePermanent, outcome.FailureKind)
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "s01e003")
}
