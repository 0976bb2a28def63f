package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/ingest/repository"
	"bookingsync_backend/platform/apperr"
)

// crossRefWindow bounds how far an experience date may drift when matching a
// reference-less cancellation against existing bookings.
const crossRefWindow = 24 * time.Hour

// reconcileMessage applies every event a message produced (primary plus
// spawned) inside one transaction. Either all bookings move or none do.
func (s *Service) reconcileMessage(ctx context.Context, msg domain.RawMessage, primary *domain.ParsedBookingEvent, force bool) ([]domain.Booking, error) {
	evs := append([]*domain.ParsedBookingEvent{primary}, primary.Spawned...)

	var touched []domain.Booking
	err := s.repo.WithTx(ctx, func(tx repository.Querier) error {
		touched = touched[:0]

		// A forced reprocess supersedes the audit rows of the prior attempt.
		var prior []domain.BookingEvent
		if force {
			var err error
			prior, err = s.repo.FindEventsByMessage(ctx, tx, msg.ID.String())
			if err != nil {
				return err
			}
			if err := s.repo.DeleteEventsByMessage(ctx, tx, msg.ID.String()); err != nil {
				return err
			}
		}

		seen := make(map[uuid.UUID]int)
		for _, ev := range evs {
			b, err := s.reconcileOne(ctx, tx, msg, ev, prior)
			if err != nil {
				return err
			}
			if idx, ok := seen[b.ID]; ok {
				touched[idx] = b
				continue
			}
			seen[b.ID] = len(touched)
			touched = append(touched, b)
		}

		// Bookings the prior attempt touched but this one did not may now be
		// orphaned artifacts of that attempt.
		for _, pe := range prior {
			if _, ok := seen[pe.BookingID]; ok {
				continue
			}
			n, err := s.repo.CountEventsForBooking(ctx, tx, pe.BookingID.String())
			if err != nil {
				return err
			}
			if n == 0 {
				if err := s.repo.DeleteBooking(ctx, tx, pe.BookingID.String()); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// reconcileOne folds one parsed event into its booking aggregate. A stale
// ordering conflict propagates as *domain.StaleEventError and aborts the
// enclosing transaction.
func (s *Service) reconcileOne(ctx context.Context, tx repository.Querier, msg domain.RawMessage, ev *domain.ParsedBookingEvent, prior []domain.BookingEvent) (domain.Booking, error) {
	now := time.Now().UTC()

	b, isNew, err := s.locate(ctx, tx, ev, prior)
	if err != nil {
		return domain.Booking{}, err
	}

	next, err := domain.ApplyEvent(b, ev, isNew, now)
	if err != nil {
		return domain.Booking{}, err
	}

	if err := s.resolveReferences(ctx, &next, ev); err != nil {
		return domain.Booking{}, err
	}
	next.LastEmailMessageID = msg.ExternalMessageID

	if isNew {
		err = s.repo.InsertBooking(ctx, tx, next)
	} else {
		err = s.repo.UpdateBooking(ctx, tx, next)
	}
	if err != nil {
		return domain.Booking{}, err
	}

	payload, err := auditPayload(ev)
	if err != nil {
		return domain.Booking{}, err
	}

	auditEvent := domain.BookingEvent{
		ID:              uuid.New(),
		BookingID:       next.ID,
		RawMessageID:    msg.ID,
		EventType:       ev.Type,
		Platform:        ev.Platform,
		ResultingStatus: next.Status,
		OccurredAt:      ev.OccurredAt,
		Payload:         payload,
	}
	if err := s.repo.InsertBookingEvent(ctx, tx, auditEvent); err != nil {
		return domain.Booking{}, err
	}

	// Regenerate addon lines whenever the event speaks about addons at all;
	// an amendment that drops every addon must clear the stored rows, not
	// leave them behind.
	touchedAddons := len(ev.Addons) > 0 ||
		ev.Patch.AddonName.IsSet() ||
		ev.Patch.AddonQuantity.IsSet() ||
		ev.Patch.AddonQuantityDelta.IsSet() ||
		ev.Patch.AddonPerGuest.IsSet()
	if touchedAddons {
		if err := s.repo.ReplaceAddons(ctx, tx, next.ID, auditEvent.ID, ev.Addons); err != nil {
			return domain.Booking{}, err
		}
	}

	return next, nil
}

// locate finds the event's booking. Events without a platform booking id
// (reference-less cancellations) go through scored cross-reference matching,
// then fall back to the booking of the audit rows being superseded; a miss
// fails closed rather than creating a keyless aggregate.
func (s *Service) locate(ctx context.Context, tx repository.Querier, ev *domain.ParsedBookingEvent, prior []domain.BookingEvent) (domain.Booking, bool, error) {
	if ev.PlatformBookingID != "" {
		b, err := s.repo.FindBookingByKey(ctx, tx, ev.Platform, ev.PlatformBookingID)
		if err == nil {
			return b, false, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return domain.Booking{}, false, err
		}
		return domain.NewBooking(ev), true, nil
	}

	b, ok, err := s.crossReference(ctx, tx, ev)
	if err != nil {
		return domain.Booking{}, false, err
	}
	if ok {
		return b, false, nil
	}

	for _, pe := range prior {
		if pe.Platform != ev.Platform {
			continue
		}
		prev, err := s.repo.GetBookingByID(ctx, tx, pe.BookingID.String())
		if err == nil {
			return prev, false, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return domain.Booking{}, false, err
		}
	}

	return domain.Booking{}, false, apperr.Validation(
		fmt.Sprintf("%s event carries no booking reference and no unambiguous cross-reference match", ev.Platform))
}

// crossReference scores non-cancelled bookings near the event's experience
// date: guest name counts double, party size and start time count once. The
// top score wins only when it is unique; ties abstain.
func (s *Service) crossReference(ctx context.Context, tx repository.Querier, ev *domain.ParsedBookingEvent) (domain.Booking, bool, error) {
	date, hasDate := ev.Patch.ExperienceDate.Get()
	if !hasDate {
		return domain.Booking{}, false, nil
	}

	candidates, err := s.repo.FindCrossRefCandidates(ctx, tx, ev.Platform,
		date.Add(-crossRefWindow), date.Add(crossRefWindow))
	if err != nil {
		return domain.Booking{}, false, err
	}

	name, _ := ev.Patch.GuestName.Get()
	partyTotal, hasParty := ev.Patch.PartySizeTotal.Get()
	startTime, hasTime := ev.Patch.ExperienceTime.Get()

	best, bestScore, tied := domain.Booking{}, 0, false
	for _, c := range candidates {
		score := 0
		if name != "" && strings.EqualFold(c.GuestName, name) {
			score += 2
		}
		if hasParty && c.PartySizeTotal == partyTotal {
			score++
		}
		if hasTime && strings.EqualFold(c.ExperienceTime, startTime) {
			score++
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = c, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if bestScore < 2 || tied {
		return domain.Booking{}, false, nil
	}
	return best, true, nil
}

// resolveReferences fills the channel and product ids. The alias resolver is
// consulted first; the static channel map (with its New Year's Eve product
// override) is the fallback.
func (s *Service) resolveReferences(ctx context.Context, b *domain.Booking, ev *domain.ParsedBookingEvent) error {
	if b.ChannelID == "" {
		b.ChannelID = s.channels.ChannelID(string(b.Platform))
	}

	productTouched := ev.Patch.ProductName.IsSet() || ev.Patch.ProductVariant.IsSet() || ev.Patch.Notes.IsSet()
	if b.ProductID != "" && !productTouched {
		return nil
	}
	if b.ProductName == "" && b.ProductVariant == "" && b.Notes == "" {
		return nil
	}

	id, matched, err := s.resolver.Resolve(ctx, b.ProductName, b.ProductVariant, b.Notes)
	if err != nil {
		return err
	}
	if matched {
		b.ProductID = id
		return nil
	}

	if id := s.channels.ProductID(b.ProductName, b.ExperienceDate); id != "" {
		b.ProductID = id
	}
	return nil
}

// auditPayload snapshots what the event stated, verbatim, for the audit row.
func auditPayload(ev *domain.ParsedBookingEvent) ([]byte, error) {
	snapshot := map[string]any{
		"patch": ev.Patch.Fields(),
	}
	if len(ev.Addons) > 0 {
		snapshot["addons"] = ev.Addons
	}
	if len(ev.RawPayload) > 0 {
		snapshot["raw"] = ev.RawPayload
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return payload, nil
}
