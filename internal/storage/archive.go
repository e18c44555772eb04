package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"resty.dev/v3"

	"showrunner/internal/config"
	"showrunner/internal/faults"
	"showrunner/internal/models"
)

func init() {
	Register("archive", func(cfg config.Config) (Adapter, error) {
		if cfg.ArchiveEndpoint == "" {
			return nil, fmt.Errorf("ARCHIVE_ENDPOINT is not set")
		}
		return NewArchive(cfg.ArchiveEndpoint, cfg.ArchiveBucket), nil
	})
}

// Archive stores episode media in a remote permanent public store. Objects
// are addressed by the deterministic key identifier, so re-uploading an
// episode resolves to the object that is already there.
type Archive struct {
	http     *resty.Client
	endpoint string
	bucket   string
}

func NewArchive(endpoint, bucket string) *Archive {
	c := resty.New()
	c.SetBaseURL(endpoint)
	c.SetTimeout(5 * time.Minute)
	return &Archive{http: c, endpoint: endpoint, bucket: bucket}
}

func (a *Archive) objectPath(key Key) string {
	return fmt.Sprintf("/%s/%s", a.bucket, key.ObjectName())
}

func (a *Archive) Validate(ctx context.Context) error {
	resp, err := a.http.R().SetContext(ctx).Head("/" + a.bucket)
	if err != nil {
		return fmt.Errorf("archive endpoint unreachable: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("archive bucket %q not accessible: %d", a.bucket, resp.StatusCode())
	}
	return nil
}

func (a *Archive) Upload(ctx context.Context, key Key, content io.Reader, meta Metadata) (models.MediaDescriptor, error) {
	// Backend-side idempotency: the store keeps one object per identifier.
	if existing, err := a.GetInfo(ctx, key); err == nil {
		return existing, nil
	} else if err != ErrNotFound {
		return models.MediaDescriptor{}, err
	}

	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", meta.MIMEType).
		SetHeader("X-Object-Title", meta.Title).
		SetHeader("X-Object-Duration", strconv.Itoa(meta.DurationSeconds)).
		SetBody(content).
		Put(a.objectPath(key))
	if err != nil {
		return models.MediaDescriptor{}, faults.Transient(fmt.Errorf("archive upload %s failed: %w", key.ObjectName(), err))
	}

	switch {
	case resp.StatusCode() >= 500:
		return models.MediaDescriptor{}, faults.Transient(fmt.Errorf("archive upload %s returned %d", key.ObjectName(), resp.StatusCode()))
	case resp.StatusCode() >= 400:
		return models.MediaDescriptor{}, faults.Permanent(fmt.Errorf("archive rejected %s: %d %s", key.ObjectName(), resp.StatusCode(), resp.String()))
	}

	return a.GetInfo(ctx, key)
}

func (a *Archive) GetInfo(ctx context.Context, key Key) (models.MediaDescriptor, error) {
	resp, err := a.http.R().SetContext(ctx).Head(a.objectPath(key))
	if err != nil {
		return models.MediaDescriptor{}, faults.Transient(fmt.Errorf("archive metadata probe %s failed: %w", key.ObjectName(), err))
	}

	switch {
	case resp.StatusCode() == 404:
		return models.MediaDescriptor{}, ErrNotFound
	case resp.StatusCode() >= 500:
		return models.MediaDescriptor{}, faults.Transient(fmt.Errorf("archive metadata probe %s returned %d", key.ObjectName(), resp.StatusCode()))
	case resp.StatusCode() >= 400:
		return models.MediaDescriptor{}, faults.Permanent(fmt.Errorf("archive metadata probe %s returned %d", key.ObjectName(), resp.StatusCode()))
	}

	length, _ := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	duration, _ := strconv.Atoi(resp.Header().Get("X-Object-Duration"))

	return models.MediaDescriptor{
		URL:             a.endpoint + a.objectPath(key),
		LengthBytes:     length,
		MIMEType:        resp.Header().Get("Content-Type"),
		DurationSeconds: duration,
	}, nil
}
