package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"showrunner/internal/config"
	"showrunner/internal/db"
	"showrunner/internal/feed"
	"showrunner/internal/generate"
	"showrunner/internal/notify"
	"showrunner/internal/pipeline"
	"showrunner/internal/storage"
	"showrunner/internal/worker"
	"showrunner/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()
	cfg := config.FromEnv()

	adapter, err := storage.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("could not open storage backend: %v", err)
	}

	generator := feed.NewGenerator(cfg.FeedPath, cfg.FeedTitle, cfg.BaseURL+"/feed.xml", cfg.FeedDescription)
	coordinator := pipeline.New(
		db.EpisodeStore{},
		generate.NewClient(cfg.GenerationURL, cfg.GenerationToken),
		adapter,
		generator,
		pipeline.Options{
			ArchiveDelay: cfg.ArchiveDelay,
			Notifier:     notifierOrNil(cfg),
		},
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// One run at a time: a sweep already covers every eligible
			// episode, and the feed rebuild is serialized anyway.
			Concurrency: 1,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Custom retry delay function for exponential backoff
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Minute
				maxDelay := 24 * time.Hour

				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(coordinator)

	mux.HandleFunc(tasks.TypeSweep, taskHandler.HandleSweepTask)
	mux.HandleFunc(tasks.TypeDispatch, taskHandler.HandleDispatchTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

func notifierOrNil(cfg config.Config) pipeline.Notifier {
	if t := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID); t != nil {
		return t
	}
	return nil
}
