package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookingsync_backend/internal/alerts"
	"bookingsync_backend/internal/archive"
	"bookingsync_backend/internal/ingest"
	"bookingsync_backend/internal/mail"
	"bookingsync_backend/internal/scheduler"
	"bookingsync_backend/internal/utmsync"
	"bookingsync_backend/platform/config"
	"bookingsync_backend/platform/db"
	"bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
	"bookingsync_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = db.NewPool(ctx, cfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt*attempt) * 2 * time.Second):
		}
	}
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	source := mail.NewIMAPSource(cfg, log)

	archiver, err := archive.NewMinIOService(cfg, log)
	if err != nil {
		log.Error("failed to initialize message archive", "error", err)
		panic("failed to initialize message archive: " + err.Error())
	}

	// The worker never serves HTTP, so no task client is attached.
	ingestModule, err := ingest.NewModule(pool, source, archiver, nil, eventBus, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize ingest module", "error", err)
		panic("failed to initialize ingest module: " + err.Error())
	}

	utmsync.NewClient(cfg, log).Subscribe(eventBus)
	alerts.NewNotifier(cfg, log).Subscribe(eventBus)

	worker, err := scheduler.NewWorker(cfg, ingestModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker ready", "concurrency", cfg.AsynqConcurrency)
	worker.Run(ctx)
	log.Info("worker stopped")
}
