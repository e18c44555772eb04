package db

import "showrunner/internal/models"

// EpisodeStore adapts the package-level query functions to the pipeline's
// Store interface.
type EpisodeStore struct{}

func (EpisodeStore) QueryByStatus(statuses ...models.Status) ([]models.Episode, error) {
	return QueryEpisodesByStatus(statuses...)
}

func (EpisodeStore) Get(season, episode int) (models.Episode, error) {
	return GetEpisode(season, episode)
}

func (EpisodeStore) Update(season, episode int, versionToken string, fields map[string]interface{}) (models.Episode, error) {
	return UpdateEpisode(season, episode, versionToken, fields)
}
