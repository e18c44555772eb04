// Package feed renders the public syndication document. The feed is always
// regenerated in full from the Live and Archived record set, so the served
// file is a consistent snapshot no matter what happened to previous runs.
package feed

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eduncan911/podcast"

	"showrunner/internal/db"
	"showrunner/internal/models"
)

// Generator rebuilds the feed document. Rebuilds are serialized: the feed
// is the one resource shared across episodes.
type Generator struct {
	mu          sync.Mutex
	path        string
	title       string
	link        string
	description string
}

func NewGenerator(path, title, link, description string) *Generator {
	return &Generator{path: path, title: title, link: link, description: description}
}

// Rebuild regenerates the feed from the database and atomically replaces
// the previous document.
func (g *Generator) Rebuild(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	episodes, err := db.ListFeedEpisodes()
	if err != nil {
		return fmt.Errorf("failed to load feed episodes: %w", err)
	}

	xml, err := Render(g.title, g.link, g.description, episodes)
	if err != nil {
		return err
	}

	return writeAtomic(g.path, []byte(xml))
}

// Render produces the feed document for the given record set. It is
// deterministic: the same records always render to identical bytes, and no
// wall-clock value leaks into the output.
func Render(title, link, description string, episodes []models.Episode) (string, error) {
	// Channel dates come from the newest release, never from time.Now,
	// so re-rendering an unchanged record set is byte-identical.
	var newest time.Time
	for i := range episodes {
		if episodes[i].ReleaseAt != nil && episodes[i].ReleaseAt.After(newest) {
			newest = *episodes[i].ReleaseAt
		}
	}

	p := podcast.New(title, link, description, &newest, &newest)

	for i := range episodes {
		ep := &episodes[i]
		if ep.Codename == nil || !ep.HasMedia() || ep.ReleaseAt == nil {
			// Never serve a half-populated entry; the record is flagged
			// and the rest of the feed stays valid.
			log.Printf("Feed: skipping incomplete record s%02de%03d", ep.Season, ep.Episode)
			continue
		}

		item := podcast.Item{
			Title:       itemTitle(ep),
			Description: itemDescription(ep),
			// The codename is the permanent identity of the entry; the
			// title may be edited after publication, the GUID never.
			GUID: *ep.Codename,
		}
		item.AddPubDate(ep.ReleaseAt)
		item.AddEnclosure(*ep.MediaURL, enclosureType(*ep.MediaMIMEType), *ep.MediaLengthBytes)
		if ep.MediaDurationSeconds != nil && *ep.MediaDurationSeconds > 0 {
			item.AddDuration(int64(*ep.MediaDurationSeconds))
		}

		if _, err := p.AddItem(item); err != nil {
			return "", fmt.Errorf("failed to add feed entry %s: %w", *ep.Codename, err)
		}
	}

	return p.String(), nil
}

func itemTitle(ep *models.Episode) string {
	if ep.Title != "" {
		return ep.Title
	}
	return *ep.Codename
}

func itemDescription(ep *models.Episode) string {
	if ep.Description != nil && *ep.Description != "" {
		return *ep.Description
	}
	return itemTitle(ep)
}

func enclosureType(mimeType string) podcast.EnclosureType {
	switch mimeType {
	case "audio/x-m4a", "audio/mp4":
		return podcast.M4A
	default:
		return podcast.MP3
	}
}

// writeAtomic writes the document next to its destination and renames it
// into place, so a reader never sees a partially written feed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp feed file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp feed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace feed: %w", err)
	}
	return nil
}
