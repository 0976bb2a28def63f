package parse

import (
	"errors"
	"strings"
	"testing"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/logger"
)

type stubParser struct {
	name     string
	canParse bool
	event    *domain.ParsedBookingEvent
	err      error
	parsed   int
}

func (s *stubParser) Name() string             { return s.name }
func (s *stubParser) CanParse(_ *Context) bool { return s.canParse }

func (s *stubParser) Parse(_ *Context) (*domain.ParsedBookingEvent, error) {
	s.parsed++
	return s.event, s.err
}

func (s *stubParser) Diagnose(_ *Context) Diagnostics {
	return Diagnostics{
		Parser: s.name,
		Checks: []Check{{Name: "match", Passed: s.canParse}},
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	first := &stubParser{name: "first", canParse: true, event: &domain.ParsedBookingEvent{PlatformBookingID: "1"}}
	second := &stubParser{name: "second", canParse: true, event: &domain.ParsedBookingEvent{PlatformBookingID: "2"}}

	reg := NewRegistry(logger.New("test"), first, second)
	ev, diags := reg.Parse(&Context{Subject: "s"})

	if ev == nil || ev.PlatformBookingID != "1" {
		t.Fatalf("Parse() = %+v, want first parser's event", ev)
	}
	if diags != nil {
		t.Errorf("diags = %v, want nil on match", diags)
	}
	if second.parsed != 0 {
		t.Errorf("second parser consulted %d times after a match", second.parsed)
	}
}

func TestRegistryParserErrorFallsThrough(t *testing.T) {
	broken := &stubParser{name: "broken", canParse: true, err: errors.New("malformed table")}
	next := &stubParser{name: "next", canParse: true, event: &domain.ParsedBookingEvent{PlatformBookingID: "7"}}

	reg := NewRegistry(logger.New("test"), broken, next)
	ev, diags := reg.Parse(&Context{Subject: "s"})

	if ev == nil || ev.PlatformBookingID != "7" {
		t.Fatalf("Parse() = %+v, want fallthrough to next parser", ev)
	}
	if diags != nil {
		t.Errorf("diags = %v, want nil once a later parser matches", diags)
	}
}

func TestRegistryAllMissReportsEveryParser(t *testing.T) {
	skipped := &stubParser{name: "skipped", canParse: false}
	failed := &stubParser{name: "failed", canParse: true, err: errors.New("no reference found")}
	nilEvent := &stubParser{name: "nil-event", canParse: true}

	reg := NewRegistry(logger.New("test"), skipped, failed, nilEvent)
	ev, diags := reg.Parse(&Context{Subject: "s"})

	if ev != nil {
		t.Fatalf("Parse() = %+v, want nil", ev)
	}
	if len(diags) != 3 {
		t.Fatalf("len(diags) = %d, want one entry per parser", len(diags))
	}

	report := Report(diags)
	for _, want := range []string{"skipped:", "failed:", "nil-event:", "no reference found"} {
		if !strings.Contains(report, want) {
			t.Errorf("Report() = %q, missing %q", report, want)
		}
	}
}

func TestContextBodyPrefersTextPart(t *testing.T) {
	withText := &Context{TextBody: "plain text", HTMLBody: "<p>html</p>"}
	if got := withText.Body(); got != "plain text" {
		t.Errorf("Body() = %q, want text part", got)
	}

	htmlOnly := &Context{HTMLBody: "<html><body><p>Booking #42</p></body></html>"}
	if got := htmlOnly.Body(); !strings.Contains(got, "Booking #42") {
		t.Errorf("Body() = %q, want extracted html text", got)
	}
}

func TestContextHeaderCaseInsensitive(t *testing.T) {
	ctx := &Context{Headers: map[string]string{"from": "a@b.com"}}
	if got := ctx.From(); got != "a@b.com" {
		t.Errorf("From() = %q", got)
	}
}
