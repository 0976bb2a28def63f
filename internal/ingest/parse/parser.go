// Package parse provides the pluggable per-platform email parsers and the
// ordered registry that dispatches to them.
package parse

import (
	"fmt"
	"strings"
	"time"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/htmltext"
)

// Context is the read-only view of a raw message handed to parsers.
type Context struct {
	ExternalMessageID string
	Subject           string
	Headers           map[string]string
	TextBody          string
	HTMLBody          string
	ReceivedAt        time.Time

	body     string
	bodyOnce bool
}

// From returns the From header.
func (c *Context) From() string {
	return c.Header("From")
}

// Header returns a header value by case-insensitive name.
func (c *Context) Header(name string) string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Body returns the plain-text body, extracting it from HTML when the message
// carries no text part. The extraction is cached per context.
func (c *Context) Body() string {
	if c.bodyOnce {
		return c.body
	}
	c.bodyOnce = true
	if strings.TrimSpace(c.TextBody) != "" {
		c.body = c.TextBody
	} else {
		c.body = htmltext.Extract(c.HTMLBody)
	}
	return c.body
}

// Parser is the contract every platform parser satisfies. CanParse is a
// cheap synchronous predicate; Parse is the fallible extraction; Diagnose
// explains why a message did or did not match, for the ignored-message
// report.
type Parser interface {
	Name() string
	CanParse(ctx *Context) bool
	Parse(ctx *Context) (*domain.ParsedBookingEvent, error)
	Diagnose(ctx *Context) Diagnostics
}

// Check is one named predicate evaluated during diagnosis.
type Check struct {
	Name     string
	Passed   bool
	Evidence string
}

// Diagnostics is the structured explanation a parser gives for a message.
type Diagnostics struct {
	Parser string
	Checks []Check
	Err    string
}

// Report renders the diagnostics as a single human-readable line.
func (d Diagnostics) Report() string {
	var sb strings.Builder
	sb.WriteString(d.Parser)
	sb.WriteString(":")
	for _, c := range d.Checks {
		sb.WriteString(" ")
		sb.WriteString(c.Name)
		if c.Passed {
			sb.WriteString("=ok")
		} else {
			sb.WriteString("=fail")
		}
		if c.Evidence != "" {
			sb.WriteString(fmt.Sprintf("(%s)", truncate(c.Evidence, 80)))
		}
	}
	if d.Err != "" {
		sb.WriteString(" error=")
		sb.WriteString(truncate(d.Err, 120))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
