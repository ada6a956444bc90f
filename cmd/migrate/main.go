package main

// Apply the embedded schema:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"
	"os/signal"

	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileMigrate).WithEnv())
	if err != nil {
		log.Fatalf("migrate: connect: %v", err)
	}
	defer pool.Close()

	version, err := db.RunMigrations(ctx, pool)
	if err != nil {
		log.Printf("migrate: %v", err)
		stop()
		pool.Close()
		os.Exit(1)
	}
	log.Printf("migrate: schema at version %d", version)
}
