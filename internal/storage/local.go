package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"showrunner/internal/config"
	"showrunner/internal/models"
)

func init() {
	Register("local", func(cfg config.Config) (Adapter, error) {
		return NewLocal(cfg.MediaDir, cfg.BaseURL), nil
	})
}

// Local stores episode media as content-addressed files under a media
// directory served by the HTTP front end. It is the reference adapter.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *Local) Validate(_ context.Context) error {
	if l.dir == "" {
		return fmt.Errorf("media directory is not configured")
	}
	return os.MkdirAll(l.dir, 0o755)
}

func (l *Local) Upload(ctx context.Context, key Key, content io.Reader, meta Metadata) (models.MediaDescriptor, error) {
	// An object already stored for this key wins; uploads never overwrite.
	if existing, err := l.GetInfo(ctx, key); err == nil {
		return existing, nil
	} else if err != ErrNotFound {
		return models.MediaDescriptor{}, err
	}

	name := key.ObjectName() + extensionFor(meta.MIMEType)
	path := filepath.Join(l.dir, name)

	tmp, err := os.CreateTemp(l.dir, key.ObjectName()+".*")
	if err != nil {
		return models.MediaDescriptor{}, fmt.Errorf("failed to create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		return models.MediaDescriptor{}, fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return models.MediaDescriptor{}, fmt.Errorf("failed to close temp object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return models.MediaDescriptor{}, fmt.Errorf("failed to place object %s: %w", name, err)
	}

	if err := l.writeSidecar(key, meta); err != nil {
		return models.MediaDescriptor{}, err
	}

	return models.MediaDescriptor{
		URL:             l.urlFor(name),
		LengthBytes:     size,
		MIMEType:        meta.MIMEType,
		DurationSeconds: meta.DurationSeconds,
	}, nil
}

func (l *Local) GetInfo(_ context.Context, key Key) (models.MediaDescriptor, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, key.ObjectName()+".*"))
	if err != nil {
		return models.MediaDescriptor{}, err
	}

	for _, match := range matches {
		if strings.HasSuffix(match, ".meta") {
			continue
		}
		info, err := os.Stat(match)
		if err != nil {
			return models.MediaDescriptor{}, err
		}
		mimeType, duration := l.readSidecar(key)
		if mimeType == "" {
			mimeType = mimeFor(filepath.Ext(match))
		}
		return models.MediaDescriptor{
			URL:             l.urlFor(filepath.Base(match)),
			LengthBytes:     info.Size(),
			MIMEType:        mimeType,
			DurationSeconds: duration,
		}, nil
	}
	return models.MediaDescriptor{}, ErrNotFound
}

func (l *Local) urlFor(name string) string {
	return fmt.Sprintf("%s/media/%s", l.baseURL, name)
}

// The sidecar keeps the mime type and duration next to the object so
// GetInfo can rebuild the exact descriptor Upload returned.
func (l *Local) writeSidecar(key Key, meta Metadata) error {
	body := fmt.Sprintf("%s\n%d\n", meta.MIMEType, meta.DurationSeconds)
	path := filepath.Join(l.dir, key.ObjectName()+".meta")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write object metadata: %w", err)
	}
	return nil
}

func (l *Local) readSidecar(key Key) (string, int) {
	data, err := os.ReadFile(filepath.Join(l.dir, key.ObjectName()+".meta"))
	if err != nil {
		return "", 0
	}
	var mimeType string
	var duration int
	fmt.Sscanf(string(data), "%s\n%d", &mimeType, &duration)
	return mimeType, duration
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/x-m4a", "audio/mp4":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}

func mimeFor(ext string) string {
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/x-m4a"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
