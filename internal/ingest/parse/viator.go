package parse

import (
	"regexp"
	"strings"

	"bookingsync_backend/internal/ingest/domain"
)

var viatorRefRe = regexp.MustCompile(`\b(BR-\d{6,})\b`)

// Viator parses Viator notification emails.
type Viator struct{}

// NewViator creates the Viator parser.
func NewViator() *Viator { return &Viator{} }

func (p *Viator) Name() string { return "viator" }

func (p *Viator) CanParse(ctx *Context) bool {
	return strings.Contains(strings.ToLower(ctx.From()), "viator.com")
}

func (p *Viator) Diagnose(ctx *Context) Diagnostics {
	from := ctx.From()
	ref := viatorRefRe.FindString(ctx.Subject + "\n" + ctx.Body())

	return Diagnostics{
		Parser: p.Name(),
		Checks: []Check{
			{
				Name:     "from_domain",
				Passed:   strings.Contains(strings.ToLower(from), "viator.com"),
				Evidence: from,
			},
			{
				Name:     "booking_ref",
				Passed:   ref != "",
				Evidence: ref,
			},
		},
	}
}

func (p *Viator) Parse(ctx *Context) (*domain.ParsedBookingEvent, error) {
	body := ctx.Body()
	combined := ctx.Subject + "\n" + body

	ref := viatorRefRe.FindString(combined)
	if ref == "" {
		return nil, nil
	}

	subject := strings.ToLower(ctx.Subject)

	ev := &domain.ParsedBookingEvent{
		Platform:          domain.PlatformViator,
		PlatformBookingID: ref,
		OccurredAt:        occurredAt(ctx),
		SourceReceivedAt:  ctx.ReceivedAt,
		RawPayload: map[string]any{
			"subject": ctx.Subject,
		},
	}

	switch {
	case strings.Contains(subject, "cancel"):
		ev.Type = domain.EventCancelled
		ev.Status = domain.StatusCancelled
	case strings.Contains(subject, "amend") || strings.Contains(subject, "update"):
		ev.Type = domain.EventAmended
		ev.Status = domain.StatusAmended
	default:
		ev.Type = domain.EventCreated
		ev.Status = domain.StatusConfirmed
	}

	if tour := labeledLine(body, "Tour"); tour != "" {
		name, variant := splitItem(tour)
		ev.Patch.ProductName = domain.Value(name)
		if variant != "" {
			ev.Patch.ProductVariant = domain.Value(variant)
		}
	}
	if name := labeledLine(body, "Lead traveler"); name != "" {
		ev.Patch.GuestName = domain.Value(name)
	}
	if dateLine := labeledLine(body, "Travel date"); dateLine != "" {
		if d, ok := parseDate(dateLine); ok {
			ev.Patch.ExperienceDate = domain.Value(d)
		}
		if clock, ok := parseClock(dateLine); ok {
			ev.Patch.ExperienceTime = domain.Value(clock)
		}
	}
	if travelers := labeledLine(body, "Travelers"); travelers != "" {
		pc := parsePartyCounts(travelers)
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

	return ev, nil
}
