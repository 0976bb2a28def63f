package domain

import (
	"errors"
	"testing"
	"time"
)

var (
	t0  = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
)

func confirmedBooking() Booking {
	return Booking{
		Platform:          PlatformFareHarbor,
		PlatformBookingID: "12345",
		Status:            StatusConfirmed,
		GuestName:         "Ada Lovelace",
		PartySizeTotal:    4,
		PartySizeAdults:   4,
		StatusChangedAt:   t0,
		SourceReceivedAt:  t0,
	}
}

func TestApplyEventStaleCancellationRejected(t *testing.T) {
	b := confirmedBooking()
	ev := &ParsedBookingEvent{
		Platform:          PlatformFareHarbor,
		PlatformBookingID: "12345",
		Type:              EventCancelled,
		Status:            StatusCancelled,
		OccurredAt:        t0.Add(-time.Hour),
	}

	next, err := ApplyEvent(b, ev, false, now)

	var stale *StaleEventError
	if !errors.As(err, &stale) {
		t.Fatalf("ApplyEvent() error = %v, want *StaleEventError", err)
	}
	if stale.PlatformBookingID != "12345" {
		t.Errorf("stale.PlatformBookingID = %q, want %q", stale.PlatformBookingID, "12345")
	}
	if next.Status != StatusConfirmed {
		t.Errorf("booking mutated on stale event: status = %q", next.Status)
	}
}

func TestApplyEventStaleAmendmentBackfillsFieldsOnly(t *testing.T) {
	b := confirmedBooking()
	b.GuestEmail = ""

	ev := &ParsedBookingEvent{
		Type:       EventAmended,
		Status:     StatusAmended,
		OccurredAt: t0.Add(-time.Hour),
		Patch: FieldPatch{
			GuestEmail: Value("ada@example.com"),
		},
	}

	next, err := ApplyEvent(b, ev, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if next.GuestEmail != "ada@example.com" {
		t.Errorf("GuestEmail = %q, want backfilled value", next.GuestEmail)
	}
	if next.Status != StatusConfirmed {
		t.Errorf("Status = %q, stale amendment must not change status", next.Status)
	}
	if !next.StatusChangedAt.Equal(t0) {
		t.Errorf("StatusChangedAt = %v, want unchanged %v", next.StatusChangedAt, t0)
	}
}

func TestApplyEventBootstrapOlderCreatedAppliesFully(t *testing.T) {
	past := t0.Add(-48 * time.Hour)
	ev := &ParsedBookingEvent{
		Platform:          PlatformViator,
		PlatformBookingID: "BR-77",
		Type:              EventCreated,
		Status:            StatusConfirmed,
		OccurredAt:        past,
		Patch: FieldPatch{
			GuestName:      Value("Grace Hopper"),
			PartySizeTotal: Value(2),
		},
	}

	b := NewBooking(ev)
	next, err := ApplyEvent(b, ev, true, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if next.Status != StatusConfirmed {
		t.Errorf("Status = %q, want %q", next.Status, StatusConfirmed)
	}
	if !next.StatusChangedAt.Equal(past) {
		t.Errorf("StatusChangedAt = %v, want seeded from event %v", next.StatusChangedAt, past)
	}
	if next.GuestName != "Grace Hopper" || next.PartySizeTotal != 2 {
		t.Errorf("patch not applied: name=%q party=%d", next.GuestName, next.PartySizeTotal)
	}
}

func TestApplyEventCancellationStampsCancelledAt(t *testing.T) {
	b := confirmedBooking()
	at := t0.Add(2 * time.Hour)
	ev := &ParsedBookingEvent{
		Type:       EventCancelled,
		Status:     StatusCancelled,
		OccurredAt: at,
	}

	next, err := ApplyEvent(b, ev, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if next.Status != StatusCancelled {
		t.Errorf("Status = %q, want %q", next.Status, StatusCancelled)
	}
	if next.CancelledAt == nil || !next.CancelledAt.Equal(at) {
		t.Errorf("CancelledAt = %v, want %v", next.CancelledAt, at)
	}
}

func TestApplyEventPartySizeDeltas(t *testing.T) {
	tests := []struct {
		name       string
		patch      FieldPatch
		wantTotal  int
		wantAdults int
		wantKids   int
	}{
		{
			name:      "total delta adds to stored value",
			patch:     FieldPatch{PartySizeTotalDelta: Value(2)},
			wantTotal: 6, wantAdults: 4,
		},
		{
			name:      "adults delta implies total",
			patch:     FieldPatch{PartySizeAdultsDelta: Value(2)},
			wantTotal: 6, wantAdults: 6,
		},
		{
			name: "explicit total delta wins over implied",
			patch: FieldPatch{
				PartySizeTotalDelta:    Value(3),
				PartySizeAdultsDelta:   Value(2),
				PartySizeChildrenDelta: Value(1),
			},
			wantTotal: 7, wantAdults: 6, wantKids: 1,
		},
		{
			name:      "negative delta removes guests",
			patch:     FieldPatch{PartySizeTotalDelta: Value(-1)},
			wantTotal: 3, wantAdults: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := confirmedBooking()
			ev := &ParsedBookingEvent{
				Type:       EventAmended,
				Status:     StatusAmended,
				OccurredAt: t0.Add(time.Hour),
				Patch:      tt.patch,
			}

			next, err := ApplyEvent(b, ev, false, now)
			if err != nil {
				t.Fatalf("ApplyEvent() error = %v", err)
			}
			if next.PartySizeTotal != tt.wantTotal {
				t.Errorf("PartySizeTotal = %d, want %d", next.PartySizeTotal, tt.wantTotal)
			}
			if next.PartySizeAdults != tt.wantAdults {
				t.Errorf("PartySizeAdults = %d, want %d", next.PartySizeAdults, tt.wantAdults)
			}
			if next.PartySizeChildren != tt.wantKids {
				t.Errorf("PartySizeChildren = %d, want %d", next.PartySizeChildren, tt.wantKids)
			}
		})
	}
}

func TestApplyEventPerGuestAddonFollowsPartySize(t *testing.T) {
	b := confirmedBooking()
	b.AddonName = "Drink Package"
	b.AddonQuantity = 4
	b.AddonPerGuest = true

	ev := &ParsedBookingEvent{
		Type:       EventAmended,
		Status:     StatusAmended,
		OccurredAt: t0.Add(time.Hour),
		Patch:      FieldPatch{PartySizeTotalDelta: Value(2)},
	}

	next, err := ApplyEvent(b, ev, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if next.AddonQuantity != 6 {
		t.Errorf("AddonQuantity = %d, want 6 (follows party size)", next.AddonQuantity)
	}
}

func TestApplyEventAddonDeltaBypassesInference(t *testing.T) {
	b := confirmedBooking()
	b.AddonName = "Drink Package"
	b.AddonQuantity = 4
	b.AddonPerGuest = true

	ev := &ParsedBookingEvent{
		Type:       EventAmended,
		Status:     StatusAmended,
		OccurredAt: t0.Add(time.Hour),
		Patch: FieldPatch{
			PartySizeTotalDelta: Value(2),
			AddonQuantityDelta:  Value(1),
		},
	}

	next, err := ApplyEvent(b, ev, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if next.AddonQuantity != 5 {
		t.Errorf("AddonQuantity = %d, want 5 (explicit delta wins)", next.AddonQuantity)
	}
	if next.PartySizeTotal != 6 {
		t.Errorf("PartySizeTotal = %d, want 6", next.PartySizeTotal)
	}
}

func TestApplyEventKeepsEarliestSourceReceivedAt(t *testing.T) {
	b := confirmedBooking()

	later := &ParsedBookingEvent{
		Type:             EventAmended,
		Status:           StatusAmended,
		OccurredAt:       t0.Add(time.Hour),
		SourceReceivedAt: t0.Add(2 * time.Hour),
	}
	next, err := ApplyEvent(b, later, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if !next.SourceReceivedAt.Equal(t0) {
		t.Errorf("SourceReceivedAt = %v, want earliest %v kept", next.SourceReceivedAt, t0)
	}

	earlier := &ParsedBookingEvent{
		Type:             EventAmended,
		Status:           StatusAmended,
		OccurredAt:       t0.Add(2 * time.Hour),
		SourceReceivedAt: t0.Add(-time.Hour),
	}
	next, err = ApplyEvent(next, earlier, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if !next.SourceReceivedAt.Equal(t0.Add(-time.Hour)) {
		t.Errorf("SourceReceivedAt = %v, want moved back to earlier receive", next.SourceReceivedAt)
	}
}

func TestApplyEventNullClearsField(t *testing.T) {
	b := confirmedBooking()
	b.Notes = "bring towels"
	date := t0.Add(72 * time.Hour)
	b.ExperienceDate = &date

	ev := &ParsedBookingEvent{
		Type:       EventAmended,
		Status:     StatusAmended,
		OccurredAt: t0.Add(time.Hour),
		Patch: FieldPatch{
			Notes:          Null[string](),
			ExperienceDate: Null[time.Time](),
		},
	}

	next, err := ApplyEvent(b, ev, false, now)
	if err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}
	if next.Notes != "" {
		t.Errorf("Notes = %q, want cleared", next.Notes)
	}
	if next.ExperienceDate != nil {
		t.Errorf("ExperienceDate = %v, want cleared", next.ExperienceDate)
	}
}
