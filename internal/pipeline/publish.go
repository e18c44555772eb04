package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"showrunner/internal/faults"
	"showrunner/internal/models"
	"showrunner/internal/storage"
)

// SourceFetcher retrieves the master audio an episode is published from.
type SourceFetcher func(ctx context.Context, url string) (io.ReadCloser, error)

// fetchSource is the default fetcher. It streams the body straight into the
// storage adapter, so it deliberately bypasses the JSON-oriented API client.
func fetchSource(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.Permanent(fmt.Errorf("invalid source media url %q: %w", url, err))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, faults.Transient(fmt.Errorf("failed to fetch source media: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, faults.Transient(fmt.Errorf("source media fetch returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, faults.Permanent(fmt.Errorf("source media fetch returned %d", resp.StatusCode))
	}
	return resp.Body, nil
}

type publishStep struct {
	adapter storage.Adapter
	fetch   SourceFetcher
}

func (s *publishStep) Name() string { return "publish" }

func (s *publishStep) Run(ctx context.Context, ep *models.Episode, force bool) (map[string]interface{}, error) {
	if ep.Published && ep.HasMedia() && !force {
		return nil, nil
	}

	key := storage.Key{Season: ep.Season, Episode: ep.Episode}

	// If the backend already holds the object (earlier attempt whose
	// record write failed, or a replay) its descriptor is recorded
	// verbatim; nothing is uploaded twice.
	desc, err := s.adapter.GetInfo(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		// Each attempt re-fetches the source, so a retry never replays a
		// half-consumed stream.
		err = retryTransient(ctx, fmt.Sprintf("publish s%02de%03d", ep.Season, ep.Episode), func() error {
			var uploadErr error
			desc, uploadErr = s.upload(ctx, ep, key)
			return uploadErr
		})
	}
	if err != nil {
		return nil, fmt.Errorf("publish failed: %w", err)
	}

	ep.MediaURL = &desc.URL
	ep.MediaLengthBytes = &desc.LengthBytes
	ep.MediaMIMEType = &desc.MIMEType
	ep.MediaDurationSeconds = &desc.DurationSeconds
	ep.Published = true
	return map[string]interface{}{
		"media_url":              desc.URL,
		"media_length_bytes":     desc.LengthBytes,
		"media_mime_type":        desc.MIMEType,
		"media_duration_seconds": desc.DurationSeconds,
		"published":              true,
	}, nil
}

func (s *publishStep) upload(ctx context.Context, ep *models.Episode, key storage.Key) (models.MediaDescriptor, error) {
	if ep.SourceMediaURL == nil || *ep.SourceMediaURL == "" {
		return models.MediaDescriptor{}, faults.Permanent(errors.New("source media is missing"))
	}

	content, err := s.fetch(ctx, *ep.SourceMediaURL)
	if err != nil {
		return models.MediaDescriptor{}, err
	}
	defer content.Close()

	duration := 0
	if ep.MediaDurationSeconds != nil {
		duration = *ep.MediaDurationSeconds
	}

	return s.adapter.Upload(ctx, key, content, storage.Metadata{
		Title:           displayTitle(ep),
		MIMEType:        "audio/mpeg",
		DurationSeconds: duration,
	})
}

func displayTitle(ep *models.Episode) string {
	if ep.Title != "" {
		return ep.Title
	}
	return deref(ep.Codename)
}
