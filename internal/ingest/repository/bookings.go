package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/apperr"
)

// Monetary columns are numeric in the schema and selected as text so they
// travel the application as exact decimal strings.
const bookingColumns = `id, platform, platform_booking_id, platform_order_id,
	status, payment_status, channel_id, product_id, product_name, product_variant,
	guest_name, guest_email, guest_phone,
	party_size_total, party_size_adults, party_size_children,
	addon_name, addon_quantity, addon_per_guest,
	COALESCE(total_amount::text, ''), currency,
	experience_date, experience_time, notes,
	status_changed_at, cancelled_at, last_email_message_id, source_received_at, processed_at,
	created_at, updated_at`

// FindBookingByKey looks up a booking by its natural key. A miss returns a
// KindNotFound error.
func (r *Repository) FindBookingByKey(ctx context.Context, q Querier, platform domain.Platform, platformBookingID string) (domain.Booking, error) {
	row := q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE platform = $1 AND platform_booking_id = $2
	`, platform, platformBookingID)

	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, apperr.NotFound("booking not found")
	}
	return b, err
}

// GetBookingByID fetches a booking by internal uuid.
func (r *Repository) GetBookingByID(ctx context.Context, q Querier, id string) (domain.Booking, error) {
	row := q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)

	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, apperr.NotFound("booking not found")
	}
	return b, err
}

// FindCrossRefCandidates returns non-cancelled bookings on a platform whose
// experience date falls inside the window. Used when a cancellation email
// carries no booking reference.
func (r *Repository) FindCrossRefCandidates(ctx context.Context, q Querier, platform domain.Platform, from, to time.Time) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE platform = $1
		  AND status <> 'cancelled'
		  AND experience_date IS NOT NULL
		  AND experience_date >= $2 AND experience_date <= $3
		ORDER BY experience_date ASC, id ASC
	`, platform, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

// InsertBooking persists a new aggregate.
func (r *Repository) InsertBooking(ctx context.Context, q Querier, b domain.Booking) error {
	_, err := q.Exec(ctx, `
		INSERT INTO bookings (id, platform, platform_booking_id, platform_order_id,
			status, payment_status, channel_id, product_id, product_name, product_variant,
			guest_name, guest_email, guest_phone,
			party_size_total, party_size_adults, party_size_children,
			addon_name, addon_quantity, addon_per_guest,
			total_amount, currency,
			experience_date, experience_time, notes,
			status_changed_at, cancelled_at, last_email_message_id, source_received_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19,
			NULLIF($20, '')::numeric, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`, bookingArgs(b)...)
	return err
}

// UpdateBooking replaces the aggregate wholesale. ApplyEvent computes the
// full next value, so partial updates never happen.
func (r *Repository) UpdateBooking(ctx context.Context, q Querier, b domain.Booking) error {
	tag, err := q.Exec(ctx, `
		UPDATE bookings SET
			platform_order_id = $4,
			status = $5, payment_status = $6,
			channel_id = $7, product_id = $8, product_name = $9, product_variant = $10,
			guest_name = $11, guest_email = $12, guest_phone = $13,
			party_size_total = $14, party_size_adults = $15, party_size_children = $16,
			addon_name = $17, addon_quantity = $18, addon_per_guest = $19,
			total_amount = NULLIF($20, '')::numeric, currency = $21,
			experience_date = $22, experience_time = $23, notes = $24,
			status_changed_at = $25, cancelled_at = $26, last_email_message_id = $27,
			source_received_at = $28, processed_at = $29,
			updated_at = now()
		WHERE id = $1
	`, bookingArgs(b)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("booking not found")
	}
	return nil
}

// DeleteBooking removes the aggregate; events and addons cascade. Only the
// timeline rebuilder calls this.
func (r *Repository) DeleteBooking(ctx context.Context, q Querier, id string) error {
	_, err := q.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	return err
}

// ListBookings returns bookings newest status change first, optionally
// filtered by platform and status.
func (r *Repository) ListBookings(ctx context.Context, q Querier, platform domain.Platform, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ($1 = '' OR platform = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY status_changed_at DESC
		LIMIT $3 OFFSET $4
	`, string(platform), string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func bookingArgs(b domain.Booking) []any {
	return []any{
		b.ID, b.Platform, b.PlatformBookingID, b.PlatformOrderID,
		b.Status, b.PaymentStatus, b.ChannelID, b.ProductID, b.ProductName, b.ProductVariant,
		b.GuestName, b.GuestEmail, b.GuestPhone,
		b.PartySizeTotal, b.PartySizeAdults, b.PartySizeChildren,
		b.AddonName, b.AddonQuantity, b.AddonPerGuest,
		b.TotalAmount, b.Currency,
		b.ExperienceDate, b.ExperienceTime, b.Notes,
		b.StatusChangedAt, b.CancelledAt, b.LastEmailMessageID, b.SourceReceivedAt, b.ProcessedAt,
	}
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.Platform, &b.PlatformBookingID, &b.PlatformOrderID,
		&b.Status, &b.PaymentStatus, &b.ChannelID, &b.ProductID, &b.ProductName, &b.ProductVariant,
		&b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.PartySizeTotal, &b.PartySizeAdults, &b.PartySizeChildren,
		&b.AddonName, &b.AddonQuantity, &b.AddonPerGuest,
		&b.TotalAmount, &b.Currency,
		&b.ExperienceDate, &b.ExperienceTime, &b.Notes,
		&b.StatusChangedAt, &b.CancelledAt, &b.LastEmailMessageID, &b.SourceReceivedAt, &b.ProcessedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func scanBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
