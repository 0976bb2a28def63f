package parse

import (
	"regexp"
	"strings"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/phone"
)

var (
	gygRefRe   = regexp.MustCompile(`\b(GYG-[A-Z0-9]{6,})\b`)
	gygOrderRe = regexp.MustCompile(`(?i)Order\s*(?:number|#)?:?\s*([A-Z0-9-]{6,})`)
)

// GetYourGuide parses GetYourGuide notification emails. Cancellation emails
// from this platform frequently omit the booking reference; the parser then
// emits an event with an empty booking id plus enough guest context for the
// reconciler's cross-reference matcher.
type GetYourGuide struct{}

// NewGetYourGuide creates the GetYourGuide parser.
func NewGetYourGuide() *GetYourGuide { return &GetYourGuide{} }

func (p *GetYourGuide) Name() string { return "getyourguide" }

func (p *GetYourGuide) CanParse(ctx *Context) bool {
	return strings.Contains(strings.ToLower(ctx.From()), "getyourguide")
}

func (p *GetYourGuide) Diagnose(ctx *Context) Diagnostics {
	from := ctx.From()
	ref := gygRefRe.FindString(ctx.Subject + "\n" + ctx.Body())

	return Diagnostics{
		Parser: p.Name(),
		Checks: []Check{
			{
				Name:     "from_domain",
				Passed:   strings.Contains(strings.ToLower(from), "getyourguide"),
				Evidence: from,
			},
			{
				Name:     "subject_kind",
				Passed:   gygKind(ctx.Subject) != "",
				Evidence: ctx.Subject,
			},
			{
				Name:     "booking_ref",
				Passed:   ref != "",
				Evidence: ref,
			},
		},
	}
}

func (p *GetYourGuide) Parse(ctx *Context) (*domain.ParsedBookingEvent, error) {
	kind := gygKind(ctx.Subject)
	if kind == "" {
		return nil, nil
	}

	body := ctx.Body()
	combined := ctx.Subject + "\n" + body

	ev := &domain.ParsedBookingEvent{
		Platform:          domain.PlatformGetYourGuide,
		PlatformBookingID: gygRefRe.FindString(combined),
		PlatformOrderID:   firstGroup(gygOrderRe, combined),
		OccurredAt:        occurredAt(ctx),
		SourceReceivedAt:  ctx.ReceivedAt,
		RawPayload: map[string]any{
			"subject": ctx.Subject,
			"kind":    kind,
		},
	}

	switch kind {
	case "created":
		ev.Type = domain.EventCreated
		ev.Status = domain.StatusConfirmed
	case "amended":
		ev.Type = domain.EventAmended
		ev.Status = domain.StatusAmended
	case "cancelled":
		ev.Type = domain.EventCancelled
		ev.Status = domain.StatusCancelled
	case "no_show":
		ev.Type = domain.EventAmended
		ev.Status = domain.StatusNoShow
	}

	p.extract(ev, body)

	return ev, nil
}

func (p *GetYourGuide) extract(ev *domain.ParsedBookingEvent, body string) {
	if activity := labeledLine(body, "Activity"); activity != "" {
		name, variant := splitItem(activity)
		ev.Patch.ProductName = domain.Value(name)
		if variant != "" {
			ev.Patch.ProductVariant = domain.Value(variant)
		}
	}
	if option := labeledLine(body, "Option"); option != "" {
		ev.Patch.ProductVariant = domain.Value(option)
	}
	if name := labeledLine(body, "Main customer"); name != "" {
		ev.Patch.GuestName = domain.Value(name)
	} else if name := labeledLine(body, "Customer"); name != "" {
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

	if participants := labeledLine(body, "Participants"); participants != "" {
		pc := parsePartyCounts(participants)
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

	if priceLine := labeledLine(body, "Price"); priceLine != "" {
		if amt, cur, ok := parseMoney(priceLine); ok {
			ev.Patch.TotalAmount = domain.Value(amt)
			ev.Patch.Currency = domain.Value(cur)
		}
	}
}

func gygKind(subject string) string {
	s := strings.ToLower(subject)
	switch {
	case strings.Contains(s, "did not show up") || strings.Contains(s, "no-show"):
		return "no_show"
	case strings.Contains(s, "cancelled") || strings.Contains(s, "canceled"):
		return "cancelled"
	case strings.Contains(s, "updated") || strings.Contains(s, "changed"):
		return "amended"
	case strings.Contains(s, "new booking"):
		return "created"
	}
	return ""
}
