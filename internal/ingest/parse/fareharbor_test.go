package parse

import (
	"testing"
	"time"

	"bookingsync_backend/internal/ingest/domain"
)

var fhReceived = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func fhContext(subject, body string) *Context {
	return &Context{
		ExternalMessageID: "msg-1",
		Subject:           subject,
		Headers: map[string]string{
			"From": "FareHarbor <notifications@fareharbor.com>",
			"Date": "Sun, 01 Jun 2025 10:15:00 +0000",
		},
		TextBody:   body,
		ReceivedAt: fhReceived,
	}
}

const fhConfirmationBody = `You have a new booking!

Booking #12345
Order: FH-ORD-A7B9
Item: Sunset Sail — VIP
Name: Jane Doe
Email: JANE@Example.com
Date: January 2, 2026 at 5:00 PM
Guests: 4 Guests (2 adults, 2 children)
Drink package: 4 guests at $15.00
Total: $1,250.50
`

func TestFareHarborCanParse(t *testing.T) {
	p := NewFareHarbor()

	if !p.CanParse(fhContext("New booking confirmed", "body")) {
		t.Error("CanParse() = false for fareharbor.com sender")
	}

	other := &Context{
		Subject: "Your GetYourGuide booking",
		Headers: map[string]string{"From": "no-reply@getyourguide.com"},
	}
	if p.CanParse(other) {
		t.Error("CanParse() = true for foreign sender")
	}
}

func TestFareHarborParseConfirmation(t *testing.T) {
	p := NewFareHarbor()
	ev, err := p.Parse(fhContext("Booking #12345 confirmed", fhConfirmationBody))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev == nil {
		t.Fatal("Parse() returned nil event")
	}

	if ev.Platform != domain.PlatformFareHarbor {
		t.Errorf("Platform = %q", ev.Platform)
	}
	if ev.PlatformBookingID != "12345" {
		t.Errorf("PlatformBookingID = %q, want 12345", ev.PlatformBookingID)
	}
	if ev.PlatformOrderID != "FH-ORD-A7B9" {
		t.Errorf("PlatformOrderID = %q", ev.PlatformOrderID)
	}
	if ev.Type != domain.EventCreated || ev.Status != domain.StatusConfirmed {
		t.Errorf("Type/Status = %q/%q", ev.Type, ev.Status)
	}

	// Occurred-at comes from the Date header, not the mailbox receive time.
	wantOccurred := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)
	if !ev.OccurredAt.Equal(wantOccurred) {
		t.Errorf("OccurredAt = %v, want %v", ev.OccurredAt, wantOccurred)
	}
	if !ev.SourceReceivedAt.Equal(fhReceived) {
		t.Errorf("SourceReceivedAt = %v, want %v", ev.SourceReceivedAt, fhReceived)
	}

	if got := ev.Patch.ProductName.Or(""); got != "Sunset Sail" {
		t.Errorf("ProductName = %q", got)
	}
	if got := ev.Patch.ProductVariant.Or(""); got != "VIP" {
		t.Errorf("ProductVariant = %q", got)
	}
	if got := ev.Patch.GuestName.Or(""); got != "Jane Doe" {
		t.Errorf("GuestName = %q", got)
	}
	if got := ev.Patch.GuestEmail.Or(""); got != "jane@example.com" {
		t.Errorf("GuestEmail = %q, want lowercased", got)
	}

	if d, ok := ev.Patch.ExperienceDate.Get(); !ok || d.Format("2006-01-02") != "2026-01-02" {
		t.Errorf("ExperienceDate = %v, %v", d, ok)
	}
	if got := ev.Patch.ExperienceTime.Or(""); got != "5:00 PM" {
		t.Errorf("ExperienceTime = %q", got)
	}

	if got := ev.Patch.PartySizeTotal.Or(0); got != 4 {
		t.Errorf("PartySizeTotal = %d", got)
	}
	if got := ev.Patch.PartySizeAdults.Or(0); got != 2 {
		t.Errorf("PartySizeAdults = %d", got)
	}
	if got := ev.Patch.PartySizeChildren.Or(0); got != 2 {
		t.Errorf("PartySizeChildren = %d", got)
	}

	if got := ev.Patch.TotalAmount.Or(""); got != "1250.50" {
		t.Errorf("TotalAmount = %q, want decimal string without separators", got)
	}
	if got := ev.Patch.Currency.Or(""); got != "USD" {
		t.Errorf("Currency = %q", got)
	}

	if got := ev.Patch.AddonName.Or(""); got != "Drink package" {
		t.Errorf("AddonName = %q", got)
	}
	if got := ev.Patch.AddonQuantity.Or(0); got != 4 {
		t.Errorf("AddonQuantity = %d", got)
	}
	if !ev.Patch.AddonPerGuest.Or(false) {
		t.Error("AddonPerGuest = false, want true")
	}
	if len(ev.Addons) != 1 || ev.Addons[0].UnitPrice != "15.00" {
		t.Errorf("Addons = %+v", ev.Addons)
	}
}

func TestFareHarborParseRebookingSpawnsReplacement(t *testing.T) {
	body := `Booking #1001 rebooked to #1002

Item: Sunset Sail
Name: Jane Doe
Date: January 9, 2026 at 5:00 PM
Guests: 4 guests
`
	p := NewFareHarbor()
	ev, err := p.Parse(fhContext("Booking #1001 rebooked to #1002", body))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if ev.PlatformBookingID != "1001" {
		t.Errorf("primary PlatformBookingID = %q, want original 1001", ev.PlatformBookingID)
	}
	if ev.Status != domain.StatusRebooked {
		t.Errorf("primary Status = %q, want rebooked", ev.Status)
	}

	if len(ev.Spawned) != 1 {
		t.Fatalf("len(Spawned) = %d, want 1", len(ev.Spawned))
	}
	sp := ev.Spawned[0]
	if sp.PlatformBookingID != "1002" {
		t.Errorf("spawned PlatformBookingID = %q, want 1002", sp.PlatformBookingID)
	}
	if sp.Type != domain.EventCreated || sp.Status != domain.StatusConfirmed {
		t.Errorf("spawned Type/Status = %q/%q", sp.Type, sp.Status)
	}
	if d, ok := sp.Patch.ExperienceDate.Get(); !ok || d.Format("2006-01-02") != "2026-01-09" {
		t.Errorf("spawned ExperienceDate = %v, %v, want new schedule", d, ok)
	}
	if got := sp.Patch.GuestName.Or(""); got != "Jane Doe" {
		t.Errorf("spawned GuestName = %q", got)
	}
}

func TestFareHarborParseAmendmentDeltas(t *testing.T) {
	body := `Booking #12345 updated

Party size change: +2 adults
Drink package: +2
`
	p := NewFareHarbor()
	ev, err := p.Parse(fhContext("Booking #12345 updated", body))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.Type != domain.EventAmended || ev.Status != domain.StatusAmended {
		t.Errorf("Type/Status = %q/%q", ev.Type, ev.Status)
	}
	if got := ev.Patch.PartySizeAdultsDelta.Or(0); got != 2 {
		t.Errorf("PartySizeAdultsDelta = %d", got)
	}
	if got := ev.Patch.AddonQuantityDelta.Or(0); got != 2 {
		t.Errorf("AddonQuantityDelta = %d", got)
	}
}

func TestFareHarborParseMissingReferenceErrors(t *testing.T) {
	p := NewFareHarbor()
	_, err := p.Parse(fhContext("Your booking is confirmed", "No reference anywhere."))
	if err == nil {
		t.Fatal("Parse() error = nil, want missing-reference error")
	}
}

func TestFareHarborParseUnknownSubjectIsNoMatch(t *testing.T) {
	p := NewFareHarbor()
	ev, err := p.Parse(fhContext("Weekly digest from FareHarbor", "Booking #999 stats"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev != nil {
		t.Errorf("Parse() = %+v, want nil for non-lifecycle subject", ev)
	}
}
