package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/phone"
)

var (
	fhBookingRe = regexp.MustCompile(`(?i)Booking\s+#(\d+)`)
	fhRebookRe  = regexp.MustCompile(`(?i)Booking\s+#(\d+)\s+rebooked\s+to\s+#(\d+)`)
	fhOrderRe   = regexp.MustCompile(`(?i)\b(FH-ORD-[A-Z0-9]+)\b`)
)

// FareHarbor parses FareHarbor notification emails. A rebooking email encodes
// two bookings: the original moves to rebooked and a spawned event creates or
// amends the replacement with the new schedule.
type FareHarbor struct{}

// NewFareHarbor creates the FareHarbor parser.
func NewFareHarbor() *FareHarbor { return &FareHarbor{} }

func (p *FareHarbor) Name() string { return "fareharbor" }

func (p *FareHarbor) CanParse(ctx *Context) bool {
	from := strings.ToLower(ctx.From())
	subject := strings.ToLower(ctx.Subject)
	return strings.Contains(from, "fareharbor.com") || strings.Contains(subject, "fareharbor")
}

func (p *FareHarbor) Diagnose(ctx *Context) Diagnostics {
	from := ctx.From()
	subject := ctx.Subject
	booking := fhBookingRe.FindString(subject + "\n" + ctx.Body())

	return Diagnostics{
		Parser: p.Name(),
		Checks: []Check{
			{
				Name:     "from_domain",
				Passed:   strings.Contains(strings.ToLower(from), "fareharbor.com"),
				Evidence: from,
			},
			{
				Name:     "booking_ref",
				Passed:   booking != "",
				Evidence: booking,
			},
			{
				Name:     "subject",
				Passed:   subjectKind(subject) != "",
				Evidence: subject,
			},
		},
	}
}

func (p *FareHarbor) Parse(ctx *Context) (*domain.ParsedBookingEvent, error) {
	subject := ctx.Subject
	body := ctx.Body()
	combined := subject + "\n" + body

	kind := subjectKind(subject)
	if kind == "" {
		return nil, nil
	}

	bookingID := firstGroup(fhBookingRe, combined)
	if bookingID == "" {
		return nil, fmt.Errorf("fareharbor: no booking reference in %q", truncate(subject, 60))
	}

	ev := &domain.ParsedBookingEvent{
		Platform:          domain.PlatformFareHarbor,
		PlatformBookingID: bookingID,
		PlatformOrderID:   firstGroup(fhOrderRe, combined),
		OccurredAt:        occurredAt(ctx),
		SourceReceivedAt:  ctx.ReceivedAt,
		RawPayload: map[string]any{
			"subject": subject,
			"kind":    kind,
		},
	}

	switch kind {
	case "confirmed":
		ev.Type = domain.EventCreated
		ev.Status = domain.StatusConfirmed
		p.extractDetails(ev, body)
	case "amended":
		ev.Type = domain.EventAmended
		ev.Status = domain.StatusAmended
		p.extractDetails(ev, body)
		p.extractAmendments(ev, body)
	case "cancelled":
		ev.Type = domain.EventCancelled
		ev.Status = domain.StatusCancelled
		p.extractDetails(ev, body)
	case "rebooked":
		ev.Type = domain.EventAmended
		ev.Status = domain.StatusRebooked
		if m := fhRebookRe.FindStringSubmatch(combined); m != nil {
			ev.PlatformBookingID = m[1]
			spawned := &domain.ParsedBookingEvent{
				Platform:          domain.PlatformFareHarbor,
				PlatformBookingID: m[2],
				PlatformOrderID:   ev.PlatformOrderID,
				Type:              domain.EventCreated,
				Status:            domain.StatusConfirmed,
				OccurredAt:        ev.OccurredAt,
				SourceReceivedAt:  ev.SourceReceivedAt,
				RawPayload: map[string]any{
					"subject":  subject,
					"kind":     "rebooked_target",
					"rebookOf": m[1],
				},
			}
			p.extractDetails(spawned, body)
			ev.Spawned = append(ev.Spawned, spawned)
		}
	}

	return ev, nil
}

// extractDetails fills the absolute fields a FareHarbor body states.
func (p *FareHarbor) extractDetails(ev *domain.ParsedBookingEvent, body string) {
	if item := labeledLine(body, "Item"); item != "" {
		name, variant := splitItem(item)
		ev.Patch.ProductName = domain.Value(name)
		if variant != "" {
			ev.Patch.ProductVariant = domain.Value(variant)
		}
	}
	if name := labeledLine(body, "Name"); name != "" {
		ev.Patch.GuestName = domain.Value(name)
	}
	if email := labeledLine(body, "Email"); email != "" {
		ev.Patch.GuestEmail = domain.Value(strings.ToLower(email))
	}
	if ph := labeledLine(body, "Phone"); ph != "" {
		ev.Patch.GuestPhone = domain.Value(phone.NormalizeE164(ph))
	}

	if dateLine := labeledLine(body, "Date"); dateLine != "" {
		if d, ok := parseDate(dateLine); ok {
			ev.Patch.ExperienceDate = domain.Value(d)
		}
		if clock, ok := parseClock(dateLine); ok {
			ev.Patch.ExperienceTime = domain.Value(clock)
		}
	}

	if guestLine := labeledLine(body, "Guests"); guestLine != "" {
		pc := parsePartyCounts(guestLine)
		if pc.hasTotal {
			ev.Patch.PartySizeTotal = domain.Value(pc.total)
		}
		if pc.hasAdults {
			ev.Patch.PartySizeAdults = domain.Value(pc.adults)
		}
		if pc.hasChildren {
			ev.Patch.PartySizeChildren = domain.Value(pc.children)
		}
	}

	if totalLine := labeledLine(body, "Total"); totalLine != "" {
		if amt, cur, ok := parseMoney(totalLine); ok {
			ev.Patch.TotalAmount = domain.Value(amt)
			ev.Patch.Currency = domain.Value(cur)
		}
	}

	if addonLine := labeledLine(body, "Drink package"); addonLine != "" {
		pc := parsePartyCounts(addonLine)
		qty := pc.total
		if qty == 0 {
			qty = 1
		}
		ev.Patch.AddonName = domain.Value("Drink package")
		ev.Patch.AddonQuantity = domain.Value(qty)
		ev.Patch.AddonPerGuest = domain.Value(true)
		addon := domain.AddonLine{Name: "Drink package", Quantity: qty}
		if amt, _, ok := parseMoney(addonLine); ok {
			addon.UnitPrice = amt
		}
		ev.Addons = append(ev.Addons, addon)
	}
}

// extractAmendments fills the delta fields an amendment body states, e.g.
// "Party size change: +2 adults" or "Drink package: +2".
func (p *FareHarbor) extractAmendments(ev *domain.ParsedBookingEvent, body string) {
	if line := labeledLine(body, "Party size change"); line != "" {
		pd := parsePartyDeltas(line)
		if pd.hasTotal {
			ev.Patch.PartySizeTotalDelta = domain.Value(pd.total)
		}
		if pd.hasAdults {
			ev.Patch.PartySizeAdultsDelta = domain.Value(pd.adults)
		}
		if pd.hasChildren {
			ev.Patch.PartySizeChildrenDelta = domain.Value(pd.children)
		}
	}
	if d, ok := parseAddonDelta(body); ok {
		ev.Patch.AddonQuantityDelta = domain.Value(d)
	}
}

func subjectKind(subject string) string {
	s := strings.ToLower(subject)
	switch {
	case fhRebookRe.MatchString(subject):
		return "rebooked"
	case strings.Contains(s, "cancelled") || strings.Contains(s, "canceled"):
		return "cancelled"
	case strings.Contains(s, "amended") || strings.Contains(s, "updated"):
		return "amended"
	case strings.Contains(s, "confirmed") || strings.Contains(s, "new booking"):
		return "confirmed"
	}
	return ""
}

// splitItem separates "Sunset Sail — VIP" into product name and variant.
func splitItem(item string) (name, variant string) {
	for _, sep := range []string{" — ", " - ", " – "} {
		if idx := strings.Index(item, sep); idx > 0 {
			return strings.TrimSpace(item[:idx]), strings.TrimSpace(item[idx+len(sep):])
		}
	}
	return strings.TrimSpace(item), ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// occurredAt prefers the Date header (when the platform sent the email) and
// falls back to the mailbox receive time.
func occurredAt(ctx *Context) time.Time {
	if raw := ctx.Header("Date"); raw != "" {
		if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC1123, raw); err == nil {
			return t
		}
	}
	return ctx.ReceivedAt
}
