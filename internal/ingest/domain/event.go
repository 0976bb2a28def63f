package domain

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the originating booking source.
type Platform string

const (
	PlatformFareHarbor   Platform = "fareharbor"
	PlatformGetYourGuide Platform = "getyourguide"
	PlatformViator       Platform = "viator"
)

// BookingStatus is the lifecycle status of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusAmended   BookingStatus = "amended"
	StatusCancelled BookingStatus = "cancelled"
	StatusRebooked  BookingStatus = "rebooked"
	StatusNoShow    BookingStatus = "no_show"
)

// EventType classifies what a parsed event does to the aggregate.
type EventType string

const (
	EventCreated   EventType = "created"
	EventAmended   EventType = "amended"
	EventCancelled EventType = "cancelled"
	EventReplayed  EventType = "replayed"
)

// AddonLine is one extra line item attached to a booking event.
type AddonLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice,omitempty"` // decimal string
}

// ParsedBookingEvent is the canonical output of a platform parser. It is
// ephemeral: reconciliation folds it into the Booking aggregate and records
// an immutable BookingEvent audit row, but the parsed event itself is never
// persisted standalone.
type ParsedBookingEvent struct {
	Platform          Platform
	PlatformBookingID string
	PlatformOrderID   string

	Status BookingStatus
	Type   EventType

	Patch  FieldPatch
	Addons []AddonLine

	// Spawned carries secondary events for platform semantics where one
	// message encodes two bookings (e.g. a rebooking).
	Spawned []*ParsedBookingEvent

	OccurredAt       time.Time
	SourceReceivedAt time.Time

	// RawPayload preserves the extracted fields verbatim for audit.
	RawPayload map[string]any
}

// BookingEvent is an immutable audit log entry. Append-only, except during a
// timeline rebuild where the full set for a booking is deleted and
// regenerated by replay.
type BookingEvent struct {
	ID              uuid.UUID
	BookingID       uuid.UUID
	RawMessageID    uuid.UUID
	EventType       EventType
	Platform        Platform
	ResultingStatus BookingStatus
	OccurredAt      time.Time
	Payload         []byte
	CreatedAt       time.Time
}
