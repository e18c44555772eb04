// Package db owns the Postgres metadata store that holds the episode
// records. One global connection, initialized once per process.
package db

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
)

// DB is the global database connection.
var DB *sqlx.DB

// InitDB connects to the metadata store. It fails fast: without the
// episode table there is nothing for a worker to do.
func InitDB() {
	var err error
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	DB, err = sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to metadata store: %v", err)
	}

	if err = DB.Ping(); err != nil {
		log.Fatalf("Failed to ping metadata store: %v", err)
	}

	log.Println("Metadata store connection established")
}
