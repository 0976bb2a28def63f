// Command backfill runs a one-shot mailbox backfill from the terminal,
// useful for initial loads and re-imports without going through the queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookingsync_backend/internal/archive"
	"bookingsync_backend/internal/ingest"
	"bookingsync_backend/internal/ingest/service"
	"bookingsync_backend/internal/mail"
	"bookingsync_backend/platform/config"
	"bookingsync_backend/platform/db"
	"bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
	"bookingsync_backend/platform/validator"
)

func main() {
	after := flag.String("after", "", "only process messages received at or after this RFC3339 instant")
	before := flag.String("before", "", "only process messages received before this RFC3339 instant")
	pageSize := flag.Int("page-size", 0, "mailbox page size (default from BACKFILL_PAGE_SIZE)")
	force := flag.Bool("force", false, "reprocess messages that were already processed or ignored")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := service.BackfillOptions{
		PageSize: *pageSize,
		Force:    *force,
	}
	if *after != "" {
		if opts.After, err = time.Parse(time.RFC3339, *after); err != nil {
			fmt.Fprintln(os.Stderr, "invalid -after:", err)
			os.Exit(1)
		}
	}
	if *before != "" {
		if opts.Before, err = time.Parse(time.RFC3339, *before); err != nil {
			fmt.Fprintln(os.Stderr, "invalid -before:", err)
			os.Exit(1)
		}
	}

	if err := db.RunMigrations(ctx, cfg, "migrations"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to run migrations:", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect to database:", err)
		os.Exit(1)
	}
	defer pool.Close()

	archiver, err := archive.NewMinIOService(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize message archive:", err)
		os.Exit(1)
	}

	eventBus := events.NewInMemoryBus(log)
	source := mail.NewIMAPSource(cfg, log)

	module, err := ingest.NewModule(pool, source, archiver, nil, eventBus, cfg, validator.New(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize ingest module:", err)
		os.Exit(1)
	}

	start := time.Now()
	final, err := module.Service().Backfill(ctx, opts, func(p service.Progress) {
		marker := "~"
		if p.Exact {
			marker = ""
		}
		fmt.Printf("page %d: processed=%d ignored=%d failed=%d skipped=%d (%s%.1f%%)\n",
			p.Page, p.Processed, p.Ignored, p.Failed, p.Skipped, marker, p.Percent)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "backfill failed:", err)
		os.Exit(1)
	}

	fmt.Printf("done in %s: processed=%d ignored=%d failed=%d skipped=%d\n",
		time.Since(start).Round(time.Second), final.Processed, final.Ignored, final.Failed, final.Skipped)
}
