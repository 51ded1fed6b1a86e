package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"marketplace/db"
	"marketplace/db/migrations"
	"marketplace/internal/auth"
	"marketplace/internal/blob"
	"marketplace/internal/config"
	"marketplace/internal/handlers"
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

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if err := migrations.Run(dbConn.DB, cfg.Driver, logger); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	blobs, err := blob.NewLocal(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Cannot prepare upload dir: %v", err)
	}
	pending, err := journal.New(cfg.JournalPath)
	if err != nil {
		log.Fatalf("Cannot prepare journal: %v", err)
	}

	store := db.NewStorage(dbConn)
	svc := market.NewService(store, blobs, pending, logger)
	authSvc := auth.NewService(store, []byte(cfg.JWTSecret), cfg.TokenTTL)
	h := handlers.NewHandler(svc, authSvc, logger)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           handlers.NewRouter(h, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	log.Println("Server stopped")
}
