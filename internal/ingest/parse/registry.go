package parse

import (
	"strings"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/logger"
)

// Registry holds the parsers in a fixed order. The first parser whose
// CanParse returns true and whose Parse yields a non-nil event wins;
// subsequent parsers are not consulted even if they could also match.
type Registry struct {
	parsers []Parser
	log     *logger.Logger
}

// NewRegistry creates a registry with the given parser order.
func NewRegistry(log *logger.Logger, parsers ...Parser) *Registry {
	return &Registry{parsers: parsers, log: log}
}

// Default returns the registry with the standard platform parser order.
func Default(log *logger.Logger) *Registry {
	return NewRegistry(log,
		NewFareHarbor(),
		NewGetYourGuide(),
		NewViator(),
	)
}

// Parse dispatches the message to the first matching parser. When no parser
// produces an event, it returns nil along with the diagnostics of every
// parser tried, so the caller can persist a human-readable reason. A parser
// returning an error counts as "no match" for that parser only.
func (r *Registry) Parse(ctx *Context) (*domain.ParsedBookingEvent, []Diagnostics) {
	diags := make([]Diagnostics, 0, len(r.parsers))

	for _, p := range r.parsers {
		if !p.CanParse(ctx) {
			diags = append(diags, p.Diagnose(ctx))
			continue
		}

		ev, err := p.Parse(ctx)
		if err != nil {
			r.log.Warn("parser failed",
				"parser", p.Name(),
				"message_id", ctx.ExternalMessageID,
				"error", err,
			)
			d := p.Diagnose(ctx)
			d.Err = err.Error()
			diags = append(diags, d)
			continue
		}
		if ev == nil {
			diags = append(diags, p.Diagnose(ctx))
			continue
		}

		return ev, nil
	}

	return nil, diags
}

// Report concatenates per-parser diagnostics into one ignored-message reason.
func Report(diags []Diagnostics) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		parts = append(parts, d.Report())
	}
	return strings.Join(parts, "; ")
}
