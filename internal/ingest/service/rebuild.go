package service

import (
	"context"
	"fmt"
	"sort"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/apperr"
)

// rebuildTimelines restores causal consistency for a set of bookings: it
// collects every source message of each booking plus the newly arrived one,
// deletes the aggregates (events and addons cascade), and reprocesses the
// messages from scratch in mailbox receive order with force set, so the
// already-processed short-circuit cannot skip any of them.
//
// The scope is closed transitively: a replayed message may also touch a
// booking outside the initial set (rebooking emails move two bookings at
// once), and replaying it against that booking's live state would apply its
// deltas twice. Any such booking joins the rebuild, pulling its own timeline
// in, until the set is stable.
//
// Reconciliation is deterministic for a fixed message order, so running the
// rebuild twice converges to the same state. Returns the final state of every
// booking the replay produced.
func (s *Service) rebuildTimelines(ctx context.Context, initial []domain.Booking, trigger domain.RawMessage) ([]domain.Booking, error) {
	pool := s.repo.Pool()

	scope := make(map[string]bool)
	msgs := map[string]domain.RawMessage{trigger.ExternalMessageID: trigger}

	queue := make([]domain.Booking, len(initial))
	copy(queue, initial)
	for _, b := range initial {
		scope[b.ID.String()] = true
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		timeline, err := s.repo.ListMessageTimelineForBooking(ctx, pool, b.ID.String())
		if err != nil {
			return nil, err
		}

		for _, entry := range timeline {
			if _, ok := msgs[entry.ExternalMessageID]; ok {
				continue
			}
			msg, err := s.repo.GetMessageByExternalID(ctx, pool, entry.ExternalMessageID)
			if err != nil {
				return nil, fmt.Errorf("collect %s: %w", entry.ExternalMessageID, err)
			}
			msgs[entry.ExternalMessageID] = msg

			evs, err := s.repo.FindEventsByMessage(ctx, pool, msg.ID.String())
			if err != nil {
				return nil, err
			}
			for _, ev := range evs {
				id := ev.BookingID.String()
				if scope[id] {
					continue
				}
				other, err := s.repo.GetBookingByID(ctx, pool, id)
				if apperr.Is(err, apperr.KindNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				scope[id] = true
				queue = append(queue, other)
			}
		}
	}

	replay := make([]domain.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		replay = append(replay, m)
	}
	sort.SliceStable(replay, func(i, j int) bool {
		if !replay[i].ReceivedAt.Equal(replay[j].ReceivedAt) {
			return replay[i].ReceivedAt.Before(replay[j].ReceivedAt)
		}
		return replay[i].ExternalMessageID < replay[j].ExternalMessageID
	})

	for id := range scope {
		if err := s.repo.DeleteBooking(ctx, pool, id); err != nil {
			return nil, err
		}
	}

	touched := make(map[string]bool)
	var order []string
	for _, msg := range replay {
		res, err := s.process(ctx, msg, true, true)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", msg.ExternalMessageID, err)
		}
		for _, id := range res.BookingIDs {
			if !touched[id] {
				touched[id] = true
				order = append(order, id)
			}
		}
	}

	var finals []domain.Booking
	for _, id := range order {
		b, err := s.repo.GetBookingByID(ctx, pool, id)
		if apperr.Is(err, apperr.KindNotFound) {
			// Superseded during replay, e.g. an orphan a later message removed.
			continue
		}
		if err != nil {
			return nil, err
		}
		finals = append(finals, b)
	}
	if len(finals) == 0 {
		return nil, fmt.Errorf("no booking survived rebuild of %d messages", len(replay))
	}

	for _, b := range finals {
		s.log.TimelineRebuild(string(b.Platform), b.PlatformBookingID, len(replay))
	}
	return finals, nil
}
