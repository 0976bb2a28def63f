package service

import (
	"context"

	"bookingsync_backend/internal/ingest/domain"
)

// SweepResult tallies one reprocess sweep.
type SweepResult struct {
	Attempted int
	Processed int
	Ignored   int
	Failed    int
}

// ReprocessSweep re-submits failed and ignored messages with the force flag,
// the sole recovery path after parser fixes or transient outages. Individual
// failures are tallied, not fatal, so one poisoned message cannot block the
// rest of the sweep.
func (s *Service) ReprocessSweep(ctx context.Context, limit int) (SweepResult, error) {
	ids, err := s.repo.ListMessageIDsByStatus(ctx, s.repo.Pool(),
		[]domain.MessageStatus{domain.MessageStatusFailed, domain.MessageStatusIgnored}, limit)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++

		out, err := s.ProcessBookingEmail(ctx, id, true)
		switch {
		case err != nil:
			res.Failed++
		case out.Status == domain.MessageStatusIgnored:
			res.Ignored++
		default:
			res.Processed++
		}
	}

	s.log.Info("reprocess sweep finished",
		"attempted", res.Attempted,
		"processed", res.Processed,
		"ignored", res.Ignored,
		"failed", res.Failed,
	)
	return res, nil
}
