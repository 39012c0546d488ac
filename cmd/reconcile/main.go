package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/pollsystem/api/internal/adapters/repository/postgres"
	"github.com/pollsystem/api/internal/config"
	"github.com/pollsystem/api/internal/core/services"
	"github.com/pollsystem/api/internal/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Reconcile.Workers)
	db.SetMaxIdleConns(cfg.Reconcile.Workers)

	if err := db.Ping(); err != nil {
		log.Error("failed to reach database", slog.Any("error", err))
		os.Exit(1)
	}

	pollRepo := postgres.NewPollRepository(db)
	tallyRepo := postgres.NewTallyRepository(db)
	reconcileService := services.NewReconcileService(pollRepo, tallyRepo, cfg.Reconcile.Workers, log)

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Info("starting vote counter reconciliation")

	corrected, err := reconcileService.ReconcileAll(ctx)
	if err != nil {
		log.Error("reconciliation failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("reconciliation completed", slog.Int("corrected", corrected))
}
