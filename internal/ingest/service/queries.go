package service

import (
	"context"

	"bookingsync_backend/internal/ingest/domain"
)

// Read-side accessors for the ops API. Thin by design: no business rules,
// just repository pass-through outside any transaction.

// GetMessage returns a raw message by external id.
func (s *Service) GetMessage(ctx context.Context, externalID string) (domain.RawMessage, error) {
	return s.repo.GetMessageByExternalID(ctx, s.repo.Pool(), externalID)
}

// ListMessages returns messages newest first, optionally filtered by status.
func (s *Service) ListMessages(ctx context.Context, status domain.MessageStatus, limit, offset int) ([]domain.RawMessage, error) {
	return s.repo.ListMessages(ctx, s.repo.Pool(), status, limit, offset)
}

// GetBooking returns a booking with its audit trail and addons.
func (s *Service) GetBooking(ctx context.Context, id string) (domain.Booking, []domain.BookingEvent, []domain.AddonLine, error) {
	b, err := s.repo.GetBookingByID(ctx, s.repo.Pool(), id)
	if err != nil {
		return domain.Booking{}, nil, nil, err
	}
	evs, err := s.repo.ListEventsForBooking(ctx, s.repo.Pool(), id)
	if err != nil {
		return domain.Booking{}, nil, nil, err
	}
	addons, err := s.repo.ListAddons(ctx, s.repo.Pool(), id)
	if err != nil {
		return domain.Booking{}, nil, nil, err
	}
	return b, evs, addons, nil
}

// ListBookings returns bookings filtered by platform and status.
func (s *Service) ListBookings(ctx context.Context, platform domain.Platform, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	return s.repo.ListBookings(ctx, s.repo.Pool(), platform, status, limit, offset)
}

// Health verifies the database is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
