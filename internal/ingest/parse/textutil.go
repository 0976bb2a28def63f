package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Shared extraction helpers for the platform parsers. These operate on the
// normalized plain-text body produced by Context.Body.

var (
	moneyRe = regexp.MustCompile(`(USD|EUR|GBP|\$|€|£)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

	// "January 2, 2026", "Jan 2, 2026", "2026-01-02"
	longDateRe = regexp.MustCompile(`([A-Z][a-z]+)\.?\s+(\d{1,2}),\s+(\d{4})`)
	isoDateRe  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

	timeRe = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:AM|PM))\b`)

	guestsRe   = regexp.MustCompile(`(?i)\b(\d+)\s*(?:x\s*)?(guests?|adults?|children|kids?)\b`)
	deltaRe    = regexp.MustCompile(`(?i)([+-]\d+)\s*(guests?|adults?|children|kids?)\b`)
	addonDelta = regexp.MustCompile(`(?i)(?:drink package|add-?on)[^+\-\d]*([+-]\d+)`)
)

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

// parseMoney extracts the first monetary amount as (decimal string, currency).
func parseMoney(s string) (amount, currency string, ok bool) {
	m := moneyRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	cur := m[1]
	if mapped, found := currencySymbols[cur]; found {
		cur = mapped
	}
	amt := strings.ReplaceAll(m[2], ",", "")
	if !strings.Contains(amt, ".") {
		amt += ".00"
	}
	return amt, cur, true
}

// parseDate extracts the first date in the supported layouts.
func parseDate(s string) (time.Time, bool) {
	if m := longDateRe.FindStringSubmatch(s); m != nil {
		for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
			if t, err := time.Parse(layout, m[1]+" "+m[2]+" "+m[3]); err == nil {
				return t, true
			}
		}
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse("2006-01-02", m[0]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock extracts a clock time like "5:00 PM" as written.
func parseClock(s string) (string, bool) {
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(strings.Join(strings.Fields(m[1]), " ")), true
}

// partyCounts extracts absolute guest counts from a line like
// "4 Guests (2 adults, 2 children)".
type partyCounts struct {
	total, adults, children int
	hasTotal                bool
	hasAdults               bool
	hasChildren             bool
}

func parsePartyCounts(s string) partyCounts {
	var pc partyCounts
	for _, m := range guestsRe.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch kindOf(m[2]) {
		case "guests":
			pc.total, pc.hasTotal = n, true
		case "adults":
			pc.adults, pc.hasAdults = n, true
		case "children":
			pc.children, pc.hasChildren = n, true
		}
	}
	if !pc.hasTotal && (pc.hasAdults || pc.hasChildren) {
		pc.total = pc.adults + pc.children
		pc.hasTotal = true
	}
	return pc
}

// partyDeltas extracts signed adjustments like "+2 adults".
type partyDeltas struct {
	total, adults, children int
	hasTotal                bool
	hasAdults               bool
	hasChildren             bool
}

func parsePartyDeltas(s string) partyDeltas {
	var pd partyDeltas
	for _, m := range deltaRe.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch kindOf(m[2]) {
		case "guests":
			pd.total, pd.hasTotal = n, true
		case "adults":
			pd.adults, pd.hasAdults = n, true
		case "children":
			pd.children, pd.hasChildren = n, true
		}
	}
	return pd
}

func parseAddonDelta(s string) (int, bool) {
	m := addonDelta.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func kindOf(word string) string {
	switch strings.ToLower(strings.TrimSuffix(word, "s")) {
	case "guest":
		return "guests"
	case "adult":
		return "adults"
	case "child", "children", "kid":
		return "children"
	}
	return ""
}

// labeledLine returns the value after "Label:" on its own line, e.g.
// "Name: Jane Doe" → "Jane Doe".
func labeledLine(body, label string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		prefix := strings.ToLower(label) + ":"
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return ""
}
