package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"showrunner/internal/config"
	"showrunner/internal/handlers"
	"showrunner/internal/middleware"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	cfg := config.FromEnv()

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	h := handlers.New(client, cfg.FeedPath, cfg.MediaDir)

	r := mux.NewRouter()

	// Trigger surface: webhook, cron wrapper and manual replay are all
	// just callers of these two endpoints.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.TriggerAuth(cfg.TriggerToken))
	api.HandleFunc("/run/sweep", h.PostSweep).Methods(http.MethodPost)
	api.HandleFunc("/run/dispatch", h.PostDispatch).Methods(http.MethodPost)

	// Public surface.
	r.HandleFunc("/feed.xml", h.GetFeed).Methods(http.MethodGet)
	r.HandleFunc("/media/{filename}", h.ServeMedia).Methods(http.MethodGet)

	log.Printf("Starting server on :%s (commit: %s)", cfg.Port, CommitSHA)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
