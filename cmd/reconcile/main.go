// Command reconcile replays uploads that were stored on disk but never
// recorded in the database, then prunes them from the pending journal. The
// journal is file-locked, so it is safe to run while the server is up.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"marketplace/db"
	"marketplace/db/migrations"
	"marketplace/internal/blob"
	"marketplace/internal/config"
	"marketplace/internal/journal"
	"marketplace/internal/market"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	dbConn, err := db.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	logger := log.New(os.Stderr, "reconcile ", log.LstdFlags)
	if err := migrations.Run(dbConn.DB, cfg.Driver, logger); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	blobs, err := blob.NewLocal(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Cannot open upload dir: %v", err)
	}
	pending, err := journal.New(cfg.JournalPath)
	if err != nil {
		log.Fatalf("Cannot open journal: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := market.NewService(db.NewStorage(dbConn), blobs, pending, logger)
	report, err := svc.Reconcile(ctx)
	for _, e := range multierr.Errors(err) {
		log.Printf("not replayed: %v", e)
	}
	log.Printf("replayed %d upload(s), %d still pending", report.Replayed, report.Remaining)
	if report.Remaining > 0 {
		os.Exit(1)
	}
}
