package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every knob the pipeline reads from the environment.
type Config struct {
	DatabaseURL string
	RedisAddr   string
	Port        string

	// BaseURL is the public root under which the feed and locally stored
	// media are served.
	BaseURL string

	// TriggerToken authenticates webhook calls to the trigger endpoints.
	TriggerToken string

	// StorageBackend selects the storage adapter ("local" or "archive").
	StorageBackend  string
	MediaDir        string
	ArchiveEndpoint string
	ArchiveBucket   string

	FeedPath        string
	FeedTitle       string
	FeedDescription string

	GenerationURL   string
	GenerationToken string

	// ArchiveDelay is how long an episode stays Live before it becomes
	// eligible for the recap/archive step.
	ArchiveDelay time.Duration

	// SweepInterval is the cadence the scheduler registers for full sweeps.
	SweepInterval string

	TelegramBotToken string
	TelegramChatID   int64
}

// FromEnv builds a Config from environment variables, applying defaults for
// everything that is safe to default.
func FromEnv() Config {
	return Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
		Port:             getenv("PORT", "8080"),
		BaseURL:          getenv("BASE_URL", "http://localhost:8080"),
		TriggerToken:     os.Getenv("TRIGGER_TOKEN"),
		StorageBackend:   getenv("STORAGE_BACKEND", "local"),
		MediaDir:         getenv("MEDIA_DIR", "media"),
		ArchiveEndpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
		ArchiveBucket:    getenv("ARCHIVE_BUCKET", "episodes"),
		FeedPath:         getenv("FEED_PATH", "feed.xml"),
		FeedTitle:        getenv("FEED_TITLE", "PR-CYBR-P0D"),
		FeedDescription:  getenv("FEED_DESCRIPTION", "Production feed of published episodes."),
		GenerationURL:    os.Getenv("GENERATION_API_URL"),
		GenerationToken:  os.Getenv("GENERATION_API_TOKEN"),
		ArchiveDelay:     getenvDuration("ARCHIVE_DELAY", 90*24*time.Hour),
		SweepInterval:    getenv("SWEEP_INTERVAL", "@every 1h"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   getenvInt64("TELEGRAM_CHAT_ID", 0),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
