package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Booking is the canonical aggregate, identified by the natural key
// (platform, platform booking id). It is treated as an immutable value:
// reconciliation computes a new Booking via ApplyEvent and persists it
// wholesale, which keeps retries from observing partial mutation.
type Booking struct {
	ID                uuid.UUID
	Platform          Platform
	PlatformBookingID string
	PlatformOrderID   string

	Status        BookingStatus
	PaymentStatus string

	ChannelID      string
	ProductID      string
	ProductName    string
	ProductVariant string

	GuestName  string
	GuestEmail string
	GuestPhone string

	PartySizeTotal    int
	PartySizeAdults   int
	PartySizeChildren int

	AddonName     string
	AddonQuantity int
	AddonPerGuest bool

	// Monetary values are fixed-point decimal strings, never floats.
	TotalAmount string
	Currency    string

	ExperienceDate *time.Time
	ExperienceTime string
	Notes          string

	StatusChangedAt    time.Time
	CancelledAt        *time.Time
	LastEmailMessageID string
	SourceReceivedAt   time.Time
	ProcessedAt        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StaleEventError signals that an incoming event precedes the aggregate's
// last recorded status change and is not allowed to apply directly. The
// caller resolves it with a timeline rebuild, never a partial write.
type StaleEventError struct {
	Platform          Platform
	PlatformBookingID string
	OccurredAt        time.Time
	StatusChangedAt   time.Time
}

func (e *StaleEventError) Error() string {
	return fmt.Sprintf("stale booking event for %s/%s: occurred %s before status change %s",
		e.Platform, e.PlatformBookingID,
		e.OccurredAt.Format(time.RFC3339), e.StatusChangedAt.Format(time.RFC3339))
}

// NewBooking seeds an aggregate from the first event seen for its key.
func NewBooking(ev *ParsedBookingEvent) Booking {
	return Booking{
		ID:                uuid.New(),
		Platform:          ev.Platform,
		PlatformBookingID: ev.PlatformBookingID,
		PlatformOrderID:   ev.PlatformOrderID,
	}
}

// ApplyEvent merges ev into b and returns the next aggregate value.
//
// Ordering guard: when the event's occurredAt is strictly older than the
// aggregate's statusChangedAt, only created/amended events may apply, and
// then only their field patch; any other stale event returns
// *StaleEventError. The bootstrap case (isNew) always applies fully, which
// lets an explicitly older created event seed statusChangedAt in the past.
func ApplyEvent(b Booking, ev *ParsedBookingEvent, isNew bool, now time.Time) (Booking, error) {
	stale := !isNew && !b.StatusChangedAt.IsZero() && ev.OccurredAt.Before(b.StatusChangedAt)
	if stale && ev.Type != EventCreated && ev.Type != EventAmended {
		return b, &StaleEventError{
			Platform:          b.Platform,
			PlatformBookingID: b.PlatformBookingID,
			OccurredAt:        ev.OccurredAt,
			StatusChangedAt:   b.StatusChangedAt,
		}
	}

	next := b
	if next.PlatformOrderID == "" && ev.PlatformOrderID != "" {
		next.PlatformOrderID = ev.PlatformOrderID
	}

	applyPatch(&next, ev.Patch)
	applyDeltas(&next, ev.Patch)

	if !stale {
		if ev.Status != "" {
			next.Status = ev.Status
		}
		next.StatusChangedAt = ev.OccurredAt
		if ev.Status == StatusCancelled {
			at := ev.OccurredAt
			next.CancelledAt = &at
		}
	}

	if !ev.SourceReceivedAt.IsZero() &&
		(next.SourceReceivedAt.IsZero() || ev.SourceReceivedAt.Before(next.SourceReceivedAt)) {
		next.SourceReceivedAt = ev.SourceReceivedAt
	}
	next.ProcessedAt = now

	return next, nil
}

func applyPatch(b *Booking, p FieldPatch) {
	setStr := func(dst *string, o Optional[string]) {
		if !o.IsSet() {
			return
		}
		v, _ := o.Get() // null yields the zero value, clearing the field
		*dst = v
	}
	setInt := func(dst *int, o Optional[int]) {
		if !o.IsSet() {
			return
		}
		v, _ := o.Get()
		*dst = v
	}

	setStr(&b.PaymentStatus, p.PaymentStatus)
	setStr(&b.GuestName, p.GuestName)
	setStr(&b.GuestEmail, p.GuestEmail)
	setStr(&b.GuestPhone, p.GuestPhone)
	setStr(&b.ProductName, p.ProductName)
	setStr(&b.ProductVariant, p.ProductVariant)
	setStr(&b.Notes, p.Notes)
	setStr(&b.ExperienceTime, p.ExperienceTime)
	setStr(&b.AddonName, p.AddonName)
	setStr(&b.TotalAmount, p.TotalAmount)
	setStr(&b.Currency, p.Currency)

	setInt(&b.PartySizeTotal, p.PartySizeTotal)
	setInt(&b.PartySizeAdults, p.PartySizeAdults)
	setInt(&b.PartySizeChildren, p.PartySizeChildren)
	setInt(&b.AddonQuantity, p.AddonQuantity)

	if p.AddonPerGuest.IsSet() {
		v, _ := p.AddonPerGuest.Get()
		b.AddonPerGuest = v
	}

	if p.ExperienceDate.IsSet() {
		if v, ok := p.ExperienceDate.Get(); ok {
			date := v
			b.ExperienceDate = &date
		} else {
			b.ExperienceDate = nil
		}
	}
}

// applyDeltas handles amendment emails that state the change, not the new
// total: delta fields add to the stored value instead of overwriting it.
func applyDeltas(b *Booking, p FieldPatch) {
	partyDelta := 0
	partyDeltaPresent := false

	if d, ok := p.PartySizeTotalDelta.Get(); ok {
		b.PartySizeTotal += d
		partyDelta = d
		partyDeltaPresent = true
	}
	if d, ok := p.PartySizeAdultsDelta.Get(); ok {
		b.PartySizeAdults += d
		if !p.PartySizeTotalDelta.IsSet() {
			b.PartySizeTotal += d
			partyDelta += d
			partyDeltaPresent = true
		}
	}
	if d, ok := p.PartySizeChildrenDelta.Get(); ok {
		b.PartySizeChildren += d
		if !p.PartySizeTotalDelta.IsSet() {
			b.PartySizeTotal += d
			partyDelta += d
			partyDeltaPresent = true
		}
	}

	if d, ok := p.AddonQuantityDelta.Get(); ok {
		b.AddonQuantity += d
		return
	}

	// Per-head addons (drink packages and the like) follow the party size
	// when the email states a party-size change but no addon change.
	if partyDeltaPresent && b.AddonPerGuest && b.AddonQuantity > 0 {
		b.AddonQuantity += partyDelta
	}
}
