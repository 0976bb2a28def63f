// Package service implements the ingestion pipeline: fetch, parse, reconcile,
// rebuild, backfill. It contains the business rules; persistence and
// transport live behind the repository and mail.Source collaborators.
package service

import (
	"context"
	"errors"
	"fmt"

	"bookingsync_backend/internal/channelmap"
	"bookingsync_backend/internal/events"
	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/ingest/parse"
	"bookingsync_backend/internal/mail"
	"bookingsync_backend/platform/apperr"
	platformevents "bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
)

// Archiver stores raw message bodies out of band. Implementations must be
// nil-safe so archival can be switched off.
type Archiver interface {
	ArchiveMessageBody(ctx context.Context, externalMessageID, htmlBody string) error
}

// Options are the ingestion tunables.
type Options struct {
	BackfillPageSize int
}

// Service orchestrates message ingestion.
type Service struct {
	repo     Store
	source   mail.Source
	registry *parse.Registry
	resolver ProductResolver
	channels *channelmap.Map
	archiver Archiver
	bus      platformevents.Bus
	log      *logger.Logger
	opts     Options
}

// New creates the ingestion service.
func New(
	repo Store,
	source mail.Source,
	registry *parse.Registry,
	resolver ProductResolver,
	channels *channelmap.Map,
	archiver Archiver,
	bus platformevents.Bus,
	log *logger.Logger,
	opts Options,
) *Service {
	if opts.BackfillPageSize <= 0 {
		opts.BackfillPageSize = 100
	}
	return &Service{
		repo:     repo,
		source:   source,
		registry: registry,
		resolver: resolver,
		channels: channels,
		archiver: archiver,
		bus:      bus,
		log:      log,
		opts:     opts,
	}
}

// ProcessResult is the outcome of one processing pass over one message.
type ProcessResult struct {
	Status     domain.MessageStatus
	BookingIDs []string
	Rebuilt    bool
	Report     string
}

// ProcessBookingEmail runs the full pipeline for one external message id.
// With force=false a message already in a terminal processed/ignored state is
// a no-op returning the prior outcome; force bypasses the short-circuit and
// supersedes the audit rows of the prior attempt.
func (s *Service) ProcessBookingEmail(ctx context.Context, externalID string, force bool) (ProcessResult, error) {
	msg, err := s.loadMessage(ctx, externalID)
	if err != nil {
		// Transport failure: the stored record, if any, keeps its status.
		return ProcessResult{}, err
	}

	if !force && (msg.Status == domain.MessageStatusProcessed || msg.Status == domain.MessageStatusIgnored) {
		return ProcessResult{Status: msg.Status, Report: msg.FailureReason}, nil
	}

	// A processed message already contributed deltas to its bookings, so a
	// straight re-run would apply them twice. Replay the affected timelines
	// from scratch instead.
	if force && msg.Status == domain.MessageStatusProcessed {
		return s.reprocessProcessed(ctx, msg)
	}

	return s.process(ctx, msg, force, false)
}

// reprocessProcessed re-runs a message whose effects are already folded into
// booking state. Every booking the prior attempt touched is rebuilt from its
// full message timeline; if none of those bookings survive, the message is
// simply processed again.
func (s *Service) reprocessProcessed(ctx context.Context, msg domain.RawMessage) (ProcessResult, error) {
	pool := s.repo.Pool()

	prior, err := s.repo.FindEventsByMessage(ctx, pool, msg.ID.String())
	if err != nil {
		return ProcessResult{}, err
	}

	var scope []domain.Booking
	seen := make(map[string]bool)
	for _, pe := range prior {
		id := pe.BookingID.String()
		if seen[id] {
			continue
		}
		seen[id] = true
		b, err := s.repo.GetBookingByID(ctx, pool, id)
		if apperr.Is(err, apperr.KindNotFound) {
			continue
		}
		if err != nil {
			return ProcessResult{}, err
		}
		scope = append(scope, b)
	}

	if len(scope) == 0 {
		return s.process(ctx, msg, true, false)
	}

	finals, err := s.rebuildTimelines(ctx, scope, msg)
	if err != nil {
		return s.fail(ctx, msg, fmt.Errorf("timeline rebuild: %w", err), false)
	}

	ids := make([]string, 0, len(finals))
	for _, b := range finals {
		ids = append(ids, b.ID.String())
		s.bus.Publish(ctx, events.NewBookingReconciled(
			b.ID.String(), string(b.Platform), b.PlatformBookingID, string(b.Status)))
	}

	return ProcessResult{
		Status:     domain.MessageStatusProcessed,
		BookingIDs: ids,
		Rebuilt:    true,
	}, nil
}

// loadMessage returns the stored raw message, fetching and upserting it from
// the mail source on first sight.
func (s *Service) loadMessage(ctx context.Context, externalID string) (domain.RawMessage, error) {
	msg, err := s.repo.GetMessageByExternalID(ctx, s.repo.Pool(), externalID)
	if err == nil {
		return msg, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return domain.RawMessage{}, err
	}

	payload, err := s.source.Get(ctx, externalID)
	if err != nil {
		if errors.Is(err, mail.ErrMessageNotFound) {
			return domain.RawMessage{}, apperr.NotFound("message not found in mailbox")
		}
		return domain.RawMessage{}, apperr.Wrap(apperr.KindUnavailable, "mail source unreachable", err)
	}

	return s.repo.UpsertMessage(ctx, s.repo.Pool(), domain.RawMessage{
		ExternalMessageID: payload.ExternalID,
		ThreadID:          payload.ThreadID,
		Subject:           payload.Subject,
		Snippet:           payload.Snippet,
		Headers:           payload.Headers,
		TextBody:          payload.TextBody,
		HTMLBody:          payload.HTMLBody,
		ReceivedAt:        payload.ReceivedAt,
	})
}

// process runs parse + reconcile for a stored message. inRebuild suppresses
// event publications and turns a stale conflict into a hard error instead of
// a nested rebuild.
func (s *Service) process(ctx context.Context, msg domain.RawMessage, force, inRebuild bool) (ProcessResult, error) {
	log := s.log.WithMessageID(msg.ExternalMessageID)

	if err := s.repo.SetMessageStatus(ctx, s.repo.Pool(), msg.ID.String(), domain.MessageStatusProcessing, ""); err != nil {
		return ProcessResult{}, err
	}

	if err := s.archiver.ArchiveMessageBody(ctx, msg.ExternalMessageID, msg.HTMLBody); err != nil {
		// Archival is best effort; the authoritative copy is the database row.
		log.Warn("message archival failed", "error", err)
	}

	pctx := &parse.Context{
		ExternalMessageID: msg.ExternalMessageID,
		Subject:           msg.Subject,
		Headers:           msg.Headers,
		TextBody:          msg.TextBody,
		HTMLBody:          msg.HTMLBody,
		ReceivedAt:        msg.ReceivedAt,
	}

	ev, diags := s.registry.Parse(pctx)
	if ev == nil {
		report := parse.Report(diags)
		if err := s.repo.SetMessageStatus(ctx, s.repo.Pool(), msg.ID.String(), domain.MessageStatusIgnored, report); err != nil {
			return ProcessResult{}, err
		}
		log.ParserMiss(msg.ExternalMessageID, report)
		if !inRebuild {
			s.bus.Publish(ctx, events.NewMessageIgnored(msg.ExternalMessageID, msg.Subject, report))
		}
		return ProcessResult{Status: domain.MessageStatusIgnored, Report: report}, nil
	}

	touched, err := s.reconcileMessage(ctx, msg, ev, force)
	if err != nil {
		var stale *domain.StaleEventError
		if errors.As(err, &stale) && !inRebuild {
			return s.resolveStale(ctx, msg, stale)
		}
		return s.fail(ctx, msg, err, inRebuild)
	}

	if err := s.repo.SetMessageStatus(ctx, s.repo.Pool(), msg.ID.String(), domain.MessageStatusProcessed, ""); err != nil {
		return ProcessResult{}, err
	}

	ids := make([]string, 0, len(touched))
	for _, b := range touched {
		ids = append(ids, b.ID.String())
		if !inRebuild {
			s.bus.Publish(ctx, events.NewBookingReconciled(
				b.ID.String(), string(b.Platform), b.PlatformBookingID, string(b.Status)))
		}
	}

	log.MessageProcessed(msg.ExternalMessageID, string(domain.MessageStatusProcessed), len(touched))
	return ProcessResult{Status: domain.MessageStatusProcessed, BookingIDs: ids}, nil
}

// resolveStale handles the ordering conflict: rebuild the booking's timeline
// (which replays the triggering message too) and report the rebuilt outcome.
// Replayed messages may span several bookings; every booking the rebuild
// finishes with gets its reconciled event.
func (s *Service) resolveStale(ctx context.Context, msg domain.RawMessage, stale *domain.StaleEventError) (ProcessResult, error) {
	b, err := s.repo.FindBookingByKey(ctx, s.repo.Pool(), stale.Platform, stale.PlatformBookingID)
	if err != nil {
		return s.fail(ctx, msg, fmt.Errorf("timeline rebuild: %w", err), false)
	}

	finals, err := s.rebuildTimelines(ctx, []domain.Booking{b}, msg)
	if err != nil {
		return s.fail(ctx, msg, fmt.Errorf("timeline rebuild: %w", err), false)
	}

	ids := make([]string, 0, len(finals))
	for _, fb := range finals {
		ids = append(ids, fb.ID.String())
		s.bus.Publish(ctx, events.NewBookingReconciled(
			fb.ID.String(), string(fb.Platform), fb.PlatformBookingID, string(fb.Status)))
	}

	return ProcessResult{
		Status:     domain.MessageStatusProcessed,
		BookingIDs: ids,
		Rebuilt:    true,
	}, nil
}

func (s *Service) fail(ctx context.Context, msg domain.RawMessage, cause error, inRebuild bool) (ProcessResult, error) {
	if err := s.repo.SetMessageStatus(ctx, s.repo.Pool(), msg.ID.String(), domain.MessageStatusFailed, cause.Error()); err != nil {
		s.log.DatabaseError("set message failed", err)
	}
	if !inRebuild {
		s.bus.Publish(ctx, events.NewMessageFailed(msg.ExternalMessageID, msg.Subject, cause.Error()))
	}
	return ProcessResult{Status: domain.MessageStatusFailed, Report: cause.Error()}, cause
}
