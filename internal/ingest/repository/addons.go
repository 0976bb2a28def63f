package repository

import (
	"context"

	"github.com/google/uuid"

	"bookingsync_backend/internal/ingest/domain"
)

// ReplaceAddons swaps the addon line items for a booking with the set a new
// event stated. Delete-then-insert inside the caller's transaction keeps the
// lines consistent with the aggregate they describe.
func (r *Repository) ReplaceAddons(ctx context.Context, q Querier, bookingID, eventID uuid.UUID, addons []domain.AddonLine) error {
	if _, err := q.Exec(ctx, `DELETE FROM booking_addons WHERE booking_id = $1`, bookingID); err != nil {
		return err
	}
	for _, a := range addons {
		if _, err := q.Exec(ctx, `
			INSERT INTO booking_addons (booking_id, booking_event_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, NULLIF($5, '')::numeric)
		`, bookingID, eventID, a.Name, a.Quantity, a.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

// ListAddons returns the addon lines for a booking.
func (r *Repository) ListAddons(ctx context.Context, q Querier, bookingID string) ([]domain.AddonLine, error) {
	rows, err := q.Query(ctx, `
		SELECT name, quantity, COALESCE(unit_price::text, '')
		FROM booking_addons
		WHERE booking_id = $1
		ORDER BY id ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AddonLine
	for rows.Next() {
		var a domain.AddonLine
		if err := rows.Scan(&a.Name, &a.Quantity, &a.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
