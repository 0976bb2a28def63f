package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"bookingsync_backend/internal/ingest/domain"
)

const eventColumns = `id, booking_id, raw_message_id, event_type, platform,
	resulting_status, occurred_at, payload, created_at`

// InsertBookingEvent appends an audit row for an applied event.
func (r *Repository) InsertBookingEvent(ctx context.Context, q Querier, e domain.BookingEvent) error {
	_, err := q.Exec(ctx, `
		INSERT INTO booking_events (id, booking_id, raw_message_id, event_type, platform,
			resulting_status, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.BookingID, e.RawMessageID, e.EventType, e.Platform,
		e.ResultingStatus, e.OccurredAt, e.Payload)
	return err
}

// ListEventsForBooking returns the audit trail in occurrence order.
func (r *Repository) ListEventsForBooking(ctx context.Context, q Querier, bookingID string) ([]domain.BookingEvent, error) {
	rows, err := q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY occurred_at ASC, created_at ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// FindEventsByMessage returns the events a message produced. The reprocess
// path consults this for already-processed messages under force.
func (r *Repository) FindEventsByMessage(ctx context.Context, q Querier, rawMessageID string) ([]domain.BookingEvent, error) {
	rows, err := q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM booking_events
		WHERE raw_message_id = $1
		ORDER BY created_at ASC
	`, rawMessageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteEventsByMessage removes the audit rows a prior processing attempt
// wrote, making a forced reprocess idempotent.
func (r *Repository) DeleteEventsByMessage(ctx context.Context, q Querier, rawMessageID string) error {
	_, err := q.Exec(ctx, `
		DELETE FROM booking_events
		WHERE raw_message_id = $1
	`, rawMessageID)
	return err
}

// CountEventsForBooking reports how many audit rows remain for a booking.
// Zero after a forced reprocess means the booking is an orphan.
func (r *Repository) CountEventsForBooking(ctx context.Context, q Querier, bookingID string) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM booking_events WHERE booking_id = $1
	`, bookingID).Scan(&n)
	return n, err
}

// MessageTimelineEntry is one source message of a booking's timeline.
type MessageTimelineEntry struct {
	ExternalMessageID string
	ReceivedAt        time.Time
}

// ListMessageTimelineForBooking returns every message that contributed an
// event to the booking, ordered by mailbox receive time. The timeline
// rebuilder replays messages in exactly this order.
func (r *Repository) ListMessageTimelineForBooking(ctx context.Context, q Querier, bookingID string) ([]MessageTimelineEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT DISTINCT m.external_message_id, m.received_at
		FROM booking_events e
		JOIN raw_messages m ON m.id = e.raw_message_id
		WHERE e.booking_id = $1
		ORDER BY m.received_at ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MessageTimelineEntry
	for rows.Next() {
		var e MessageTimelineEntry
		if err := rows.Scan(&e.ExternalMessageID, &e.ReceivedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEvents(rows pgx.Rows) ([]domain.BookingEvent, error) {
	var out []domain.BookingEvent
	for rows.Next() {
		var e domain.BookingEvent
		if err := rows.Scan(
			&e.ID, &e.BookingID, &e.RawMessageID, &e.EventType, &e.Platform,
			&e.ResultingStatus, &e.OccurredAt, &e.Payload, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
