package models

import "time"

// Status is the production state of an episode. Transitions are monotonic
// and owned by the pipeline coordinator; the database only persists them.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusComplete   Status = "Complete"
	StatusLive       Status = "Live"
	StatusArchived   Status = "Archived"
)

// Valid reports whether s is one of the known production states.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusComplete, StatusLive, StatusArchived:
		return true
	}
	return false
}

// Episode is the canonical per-episode record, keyed by (season, episode).
type Episode struct {
	Season   int     `db:"season"`
	Episode  int     `db:"episode"`
	Codename *string `db:"codename"`

	// Content fields are supplied externally and read-only to the pipeline.
	Title          string  `db:"title"`
	Description    *string `db:"description"`
	Keywords       *string `db:"keywords"`
	PromptInput    *string `db:"prompt_input"`
	SourceMediaURL *string `db:"source_media_url"`

	Status    Status     `db:"status"`
	ReleaseAt *time.Time `db:"release_at"`

	// Media descriptor, populated only by a successful publish.
	MediaURL             *string `db:"media_url"`
	MediaLengthBytes     *int64  `db:"media_length_bytes"`
	MediaMIMEType        *string `db:"media_mime_type"`
	MediaDurationSeconds *int    `db:"media_duration_seconds"`

	// Artifact flags, each set by exactly one step and never cleared
	// automatically.
	Transcribed    bool    `db:"transcribed"`
	TranscriptURL  *string `db:"transcript_url"`
	ScriptURL      *string `db:"script_url"`
	ShowNotesURL   *string `db:"show_notes_url"`
	RecapURL       *string `db:"recap_url"`
	RecapGenerated bool    `db:"recap_generated"`
	Published      bool    `db:"published"`
	Archived       bool    `db:"archived"`

	VersionToken string    `db:"version_token"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// HasMedia reports whether the full enclosure descriptor is present.
func (e *Episode) HasMedia() bool {
	return e.MediaURL != nil && e.MediaLengthBytes != nil && e.MediaMIMEType != nil
}

// MediaDescriptor is the canonical shape returned by storage adapters.
type MediaDescriptor struct {
	URL             string
	LengthBytes     int64
	MIMEType        string
	DurationSeconds int
}
