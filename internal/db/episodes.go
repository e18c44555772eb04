package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"showrunner/internal/models"
)

// ErrConflict is returned when an update carries a stale version token,
// meaning the record was modified externally since it was read.
var ErrConflict = errors.New("version conflict")

// ErrNotFound is returned when no record exists for an episode key. Callers
// use it to tell a bad key from a store failure.
var ErrNotFound = errors.New("episode not found")

const episodeColumns = `season, episode, codename, title, description, keywords,
	prompt_input, source_media_url, status, release_at,
	media_url, media_length_bytes, media_mime_type, media_duration_seconds,
	transcribed, transcript_url, script_url, show_notes_url, recap_url,
	recap_generated, published, archived, version_token, created_at, updated_at`

// QueryEpisodesByStatus returns all episodes in any of the given statuses,
// ordered by (season, episode).
func QueryEpisodesByStatus(statuses ...models.Status) ([]models.Episode, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(s)
	}

	query := fmt.Sprintf(`SELECT %s FROM episodes WHERE status IN (%s) ORDER BY season, episode`,
		episodeColumns, strings.Join(placeholders, ", "))

	var episodes []models.Episode
	if err := DB.Select(&episodes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query episodes by status: %w", err)
	}
	return episodes, nil
}

// GetEpisode fetches a single episode by its natural key.
func GetEpisode(season, episode int) (models.Episode, error) {
	ep := models.Episode{}
	query := fmt.Sprintf("SELECT %s FROM episodes WHERE season = $1 AND episode = $2", episodeColumns)
	err := DB.Get(&ep, query, season, episode)
	if errors.Is(err, sql.ErrNoRows) {
		return ep, fmt.Errorf("s%02de%03d: %w", season, episode, ErrNotFound)
	}
	if err != nil {
		return ep, fmt.Errorf("failed to load episode s%02de%03d: %w", season, episode, err)
	}
	return ep, nil
}

// ListFeedEpisodes returns the Live and Archived episodes that make up the
// syndication feed, newest release first.
func ListFeedEpisodes() ([]models.Episode, error) {
	query := fmt.Sprintf(`SELECT %s FROM episodes WHERE status IN ($1, $2) ORDER BY release_at DESC, season DESC, episode DESC`,
		episodeColumns)

	var episodes []models.Episode
	if err := DB.Select(&episodes, query, string(models.StatusLive), string(models.StatusArchived)); err != nil {
		return nil, fmt.Errorf("failed to query feed episodes: %w", err)
	}
	return episodes, nil
}

// UpdateEpisode applies the given fields to an episode if and only if the
// caller's version token is still current, rotating the token in the same
// statement. A stale token yields ErrConflict. Fields are applied in sorted
// key order so the generated SQL is deterministic.
func UpdateEpisode(season, episode int, versionToken string, fields map[string]interface{}) (models.Episode, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := []string{"version_token = $1", "updated_at = NOW()"}
	args := []interface{}{uuid.NewString()}
	for _, k := range keys {
		args = append(args, fields[k])
		set = append(set, fmt.Sprintf("%s = $%d", k, len(args)))
	}

	args = append(args, season, episode, versionToken)
	query := fmt.Sprintf(`UPDATE episodes SET %s WHERE season = $%d AND episode = $%d AND version_token = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args)-2, len(args)-1, len(args), episodeColumns)

	ep := models.Episode{}
	err := DB.Get(&ep, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ep, ErrConflict
	}
	if err != nil {
		return ep, fmt.Errorf("failed to update episode s%02de%03d: %w", season, episode, err)
	}
	return ep, nil
}
