package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/ingest/repository"
)

// Store is the persistence contract the ingestion service consumes. The
// Postgres implementation lives in the repository package; tests substitute
// an in-memory fake.
type Store interface {
	// Pool returns the querier for work outside a transaction; WithTx runs
	// fn inside one, passing the transactional querier.
	Pool() repository.Querier
	WithTx(ctx context.Context, fn func(q repository.Querier) error) error
	Ping(ctx context.Context) error

	UpsertMessage(ctx context.Context, q repository.Querier, m domain.RawMessage) (domain.RawMessage, error)
	SetMessageStatus(ctx context.Context, q repository.Querier, id string, status domain.MessageStatus, reason string) error
	GetMessageByExternalID(ctx context.Context, q repository.Querier, externalID string) (domain.RawMessage, error)
	GetMessageByID(ctx context.Context, q repository.Querier, id string) (domain.RawMessage, error)
	ListMessages(ctx context.Context, q repository.Querier, status domain.MessageStatus, limit, offset int) ([]domain.RawMessage, error)
	ListMessageIDsByStatus(ctx context.Context, q repository.Querier, statuses []domain.MessageStatus, limit int) ([]string, error)

	FindBookingByKey(ctx context.Context, q repository.Querier, platform domain.Platform, platformBookingID string) (domain.Booking, error)
	GetBookingByID(ctx context.Context, q repository.Querier, id string) (domain.Booking, error)
	FindCrossRefCandidates(ctx context.Context, q repository.Querier, platform domain.Platform, from, to time.Time) ([]domain.Booking, error)
	InsertBooking(ctx context.Context, q repository.Querier, b domain.Booking) error
	UpdateBooking(ctx context.Context, q repository.Querier, b domain.Booking) error
	DeleteBooking(ctx context.Context, q repository.Querier, id string) error
	ListBookings(ctx context.Context, q repository.Querier, platform domain.Platform, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error)

	InsertBookingEvent(ctx context.Context, q repository.Querier, e domain.BookingEvent) error
	ListEventsForBooking(ctx context.Context, q repository.Querier, bookingID string) ([]domain.BookingEvent, error)
	FindEventsByMessage(ctx context.Context, q repository.Querier, rawMessageID string) ([]domain.BookingEvent, error)
	DeleteEventsByMessage(ctx context.Context, q repository.Querier, rawMessageID string) error
	CountEventsForBooking(ctx context.Context, q repository.Querier, bookingID string) (int, error)
	ListMessageTimelineForBooking(ctx context.Context, q repository.Querier, bookingID string) ([]repository.MessageTimelineEntry, error)

	ReplaceAddons(ctx context.Context, q repository.Querier, bookingID, eventID uuid.UUID, addons []domain.AddonLine) error
	ListAddons(ctx context.Context, q repository.Querier, bookingID string) ([]domain.AddonLine, error)
}

// ProductResolver maps free-text product labels to canonical product ids.
type ProductResolver interface {
	Resolve(ctx context.Context, candidates ...string) (productID string, matched bool, err error)
}

var _ Store = (*repository.Repository)(nil)
