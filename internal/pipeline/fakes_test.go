package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"showrunner/internal/db"
	"showrunner/internal/faults"
	"showrunner/internal/models"
	"showrunner/internal/storage"
)

func strPtr(s string) *string       { return &s }
func timePtr(t time.Time) *time.Time { return &t }

// fakeService is an in-memory generate.Service.
type fakeService struct {
	transcribeCalls int
	docCalls        int
	docErr          error
	enhanceErr      error
	summarizeErr    error
	summarizeCalls  int
	// summarizeFlaky fails this many Summarize calls before succeeding.
	summarizeFlaky int
	// failTranscribe maps a media URL to the error Transcribe returns.
	failTranscribe map[string]error
	lastDocBody    string
}

func (f *fakeService) Transcribe(_ context.Context, mediaURL string) (string, error) {
	f.transcribeCalls++
	if err, ok := f.failTranscribe[mediaURL]; ok {
		return "", err
	}
	return "https://docs.example.com/transcript/" + mediaURL, nil
}

func (f *fakeService) CreateDocument(_ context.Context, title, body string) (string, error) {
	f.docCalls++
	if f.docErr != nil {
		return "", f.docErr
	}
	f.lastDocBody = body
	return "https://docs.example.com/" + strings.ReplaceAll(title, " ", "-"), nil
}

func (f *fakeService) Enhance(_ context.Context, body string) (string, error) {
	if f.enhanceErr != nil {
		return "", f.enhanceErr
	}
	return "enhanced: " + body, nil
}

func (f *fakeService) Summarize(_ context.Context, sourceURL string) (string, error) {
	f.summarizeCalls++
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	if f.summarizeCalls <= f.summarizeFlaky {
		return "", faults.Transient(errors.New("summarize upstream timeout"))
	}
	return "https://docs.example.com/recap/" + sourceURL, nil
}

// fakeStore is an in-memory pipeline.Store that records updates.
type fakeStore struct {
	episodes  []models.Episode
	updates   []storeUpdate
	updateErr error
	getErr    error
}

type storeUpdate struct {
	season  int
	episode int
	fields  map[string]interface{}
}

func (f *fakeStore) QueryByStatus(statuses ...models.Status) ([]models.Episode, error) {
	want := make(map[models.Status]bool)
	for _, s := range statuses {
		want[s] = true
	}
	var out []models.Episode
	for _, ep := range f.episodes {
		if want[ep.Status] {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(season, episode int) (models.Episode, error) {
	if f.getErr != nil {
		return models.Episode{}, f.getErr
	}
	for _, ep := range f.episodes {
		if ep.Season == season && ep.Episode == episode {
			return ep, nil
		}
	}
	return models.Episode{}, fmt.Errorf("s%02de%03d: %w", season, episode, db.ErrNotFound)
}

func (f *fakeStore) Update(season, episode int, _ string, fields map[string]interface{}) (models.Episode, error) {
	if f.updateErr != nil {
		return models.Episode{}, f.updateErr
	}
	f.updates = append(f.updates, storeUpdate{season: season, episode: episode, fields: fields})
	return models.Episode{
		Season: season, Episode: episode,
		VersionToken: fmt.Sprintf("tok-rotated-%d", len(f.updates)),
	}, nil
}

// fakeAdapter is an in-memory storage.Adapter.
type fakeAdapter struct {
	objects map[storage.Key]models.MediaDescriptor
	uploads int
	// failUploads fails this many Upload calls before accepting one.
	failUploads int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{objects: make(map[storage.Key]models.MediaDescriptor)}
}

func (f *fakeAdapter) Validate(context.Context) error { return nil }

func (f *fakeAdapter) GetInfo(_ context.Context, key storage.Key) (models.MediaDescriptor, error) {
	if desc, ok := f.objects[key]; ok {
		return desc, nil
	}
	return models.MediaDescriptor{}, storage.ErrNotFound
}

func (f *fakeAdapter) Upload(_ context.Context, key storage.Key, content io.Reader, meta storage.Metadata) (models.MediaDescriptor, error) {
	if desc, ok := f.objects[key]; ok {
		return desc, nil
	}
	if f.failUploads > 0 {
		f.failUploads--
		return models.MediaDescriptor{}, faults.Transient(errors.New("backend unavailable"))
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return models.MediaDescriptor{}, err
	}
	f.uploads++
	desc := models.MediaDescriptor{
		URL:             "https://store.example.com/" + key.ObjectName() + ".mp3",
		LengthBytes:     int64(len(data)),
		MIMEType:        meta.MIMEType,
		DurationSeconds: meta.DurationSeconds,
	}
	f.objects[key] = desc
	return desc, nil
}

// fakeFeed counts rebuilds.
type fakeFeed struct {
	rebuilds int
}

func (f *fakeFeed) Rebuild(context.Context) error {
	f.rebuilds++
	return nil
}

// fakeNotifier records operator alerts.
type fakeNotifier struct {
	alerts []string
}

func (f *fakeNotifier) Alert(_ context.Context, message string) {
	f.alerts = append(f.alerts, message)
}

func fakeFetch(_ context.Context, url string) (io.ReadCloser, error) {
	if url == "" {
		return nil, errors.New("empty url")
	}
	return io.NopCloser(strings.NewReader("audio bytes for " + url)), nil
}

// shrinkRetryDelays makes the transient-retry backoff immediate for tests.
func shrinkRetryDelays(restore func(func())) {
	base, max := retryBaseDelay, retryMaxDelay
	retryBaseDelay, retryMaxDelay = time.Millisecond, 2*time.Millisecond
	restore(func() {
		retryBaseDelay, retryMaxDelay = base, max
	})
}
