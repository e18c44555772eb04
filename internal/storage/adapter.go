// Package storage abstracts the content-storage backends episodes are
// published to. The pipeline only consumes the Adapter contract; the
// backend is selected once per run by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"showrunner/internal/config"
	"showrunner/internal/models"
)

// ErrNotFound is returned by GetInfo when no object exists for a key.
var ErrNotFound = errors.New("object not found")

// Key identifies an episode's stored object. The same key always maps to
// the same backend identifier, which is what makes Upload idempotent.
type Key struct {
	Season  int
	Episode int
}

// ObjectName is the deterministic backend identifier for the key.
func (k Key) ObjectName() string {
	return fmt.Sprintf("s%02de%03d", k.Season, k.Episode)
}

// Metadata describes the content handed to Upload.
type Metadata struct {
	Title           string
	MIMEType        string
	DurationSeconds int
}

// Adapter is the uniform three-method storage contract.
type Adapter interface {
	// Upload stores content under the key's deterministic identifier. If
	// the backend already holds an object for the key, the existing
	// descriptor is returned and no duplicate is created.
	Upload(ctx context.Context, key Key, content io.Reader, meta Metadata) (models.MediaDescriptor, error)
	// Validate checks the adapter's configuration.
	Validate(ctx context.Context) error
	// GetInfo returns the descriptor of a stored object, or ErrNotFound.
	GetInfo(ctx context.Context, key Key) (models.MediaDescriptor, error)
}

// Factory builds an adapter from configuration.
type Factory func(cfg config.Config) (Adapter, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register makes an adapter available under a backend name. Called from
// adapter init functions.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Open resolves the configured backend and validates it.
func Open(ctx context.Context, cfg config.Config) (Adapter, error) {
	mu.Lock()
	f, ok := factories[cfg.StorageBackend]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (have %v)", cfg.StorageBackend, names())
	}

	adapter, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build %q storage adapter: %w", cfg.StorageBackend, err)
	}
	if err := adapter.Validate(ctx); err != nil {
		return nil, fmt.Errorf("storage backend %q failed validation: %w", cfg.StorageBackend, err)
	}
	return adapter, nil
}

func names() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
