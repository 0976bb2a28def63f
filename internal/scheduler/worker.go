package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bookingsync_backend/internal/ingest/service"
	"bookingsync_backend/platform/config"
	"bookingsync_backend/platform/logger"
)

// Worker executes ingestion tasks from the queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	svc    *service.Service
	log    *logger.Logger
}

// NewWorker creates the task worker.
func NewWorker(cfg config.SchedulerConfig, svc *service.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		svc:    svc,
		log:    log,
	}

	mux.HandleFunc(TaskBackfill, w.handleBackfill)
	mux.HandleFunc(TaskReprocessSweep, w.handleReprocessSweep)

	return w, nil
}

func (w *Worker) handleBackfill(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBackfillPayload(task)
	if err != nil {
		return err
	}

	opts := service.BackfillOptions{
		PageSize: payload.PageSize,
		Force:    payload.Force,
	}
	if payload.After != "" {
		if opts.After, err = time.Parse(time.RFC3339, payload.After); err != nil {
			return fmt.Errorf("bad after bound: %w", err)
		}
	}
	if payload.Before != "" {
		if opts.Before, err = time.Parse(time.RFC3339, payload.Before); err != nil {
			return fmt.Errorf("bad before bound: %w", err)
		}
	}

	prog, err := w.svc.Backfill(ctx, opts, func(p service.Progress) {
		w.log.Info("backfill progress",
			"page", p.Page,
			"processed", p.Processed,
			"ignored", p.Ignored,
			"failed", p.Failed,
			"skipped", p.Skipped,
			"percent", p.Percent,
			"exact", p.Exact,
		)
	})
	if err != nil {
		return err
	}

	w.log.Info("backfill finished",
		"pages", prog.Page,
		"processed", prog.Processed,
		"ignored", prog.Ignored,
		"failed", prog.Failed,
		"skipped", prog.Skipped,
	)
	return nil
}

func (w *Worker) handleReprocessSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReprocessSweepPayload(task)
	if err != nil {
		return err
	}

	_, err = w.svc.ReprocessSweep(ctx, payload.Limit)
	return err
}

// Run serves tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
