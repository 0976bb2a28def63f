package service

import (
	"context"
	"time"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/mail"
	"bookingsync_backend/platform/logger"
)

// BackfillOptions bound a backfill run.
type BackfillOptions struct {
	// After/Before bound the mailbox receive time; zero means unbounded.
	After  time.Time
	Before time.Time

	PageSize int
	Force    bool
}

// Progress is the running tally of a backfill, reported after every page.
type Progress struct {
	Page      int
	Processed int
	Ignored   int
	Failed    int
	Skipped   int

	// Percent is exact when the source enumerates its match set up front,
	// otherwise an estimate from the provider's size hint.
	Percent float64
	Exact   bool
}

// Backfill pages through the mail source and processes every message inside
// the date bounds. Pages arrive newest first; within a page messages are
// processed oldest first so replays approximate original delivery order.
// onProgress, if non-nil, is called after each page.
func (s *Service) Backfill(ctx context.Context, opts BackfillOptions, onProgress func(Progress)) (Progress, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = s.opts.BackfillPageSize
	}

	proc := func(ctx context.Context, externalID string) (domain.MessageStatus, error) {
		res, err := s.ProcessBookingEmail(ctx, externalID, opts.Force)
		return res.Status, err
	}
	return runBackfill(ctx, s.source, proc, opts, onProgress, s.log)
}

// runBackfill is the driver core, factored over the mail source and a
// message processor so it is testable without the full pipeline.
func runBackfill(
	ctx context.Context,
	source mail.Source,
	proc func(ctx context.Context, externalID string) (domain.MessageStatus, error),
	opts BackfillOptions,
	onProgress func(Progress),
	log *logger.Logger,
) (Progress, error) {
	var prog Progress
	pageToken := ""
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return prog, err
		}

		page, err := source.List(ctx, mail.ListQuery{
			After:     opts.After,
			Before:    opts.Before,
			PageSize:  opts.PageSize,
			PageToken: pageToken,
		})
		if err != nil {
			return prog, err
		}
		prog.Page++
		if page.TotalSizeEstimate > total {
			total = page.TotalSizeEstimate
			prog.Exact = page.EstimateExact
		}

		// Reverse the newest-first page so messages apply oldest first.
		refs := make([]mail.MessageRef, len(page.Messages))
		for i, ref := range page.Messages {
			refs[len(refs)-1-i] = ref
		}

		// Pagination walks backwards in time, so one message below the lower
		// bound means every following page is below it too.
		skippedLower := false
		for _, ref := range refs {
			if !opts.After.IsZero() && ref.ReceivedAt.Before(opts.After) {
				prog.Skipped++
				skippedLower = true
				continue
			}
			if !opts.Before.IsZero() && ref.ReceivedAt.After(opts.Before) {
				prog.Skipped++
				continue
			}

			status, err := proc(ctx, ref.ExternalID)
			switch {
			case err != nil:
				prog.Failed++
				log.Error("backfill message failed", "message_id", ref.ExternalID, "error", err)
			case status == domain.MessageStatusIgnored:
				prog.Ignored++
			default:
				prog.Processed++
			}
		}

		done := prog.Processed + prog.Ignored + prog.Failed + prog.Skipped
		if total > 0 {
			prog.Percent = float64(done) / float64(total) * 100
			if prog.Percent > 100 {
				prog.Percent = 100
			}
		}
		if onProgress != nil {
			onProgress(prog)
		}

		if skippedLower || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	prog.Percent = 100
	return prog, nil
}
