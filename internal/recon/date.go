package recon

import (
	"regexp"
	"strings"
	"time"
)

// Date extraction is best-effort over heterogeneous exports: an ordered list
// of independent strategies, first success wins. Total failure is "no date",
// not an error; the row just drops out of period scoping. Zone offsets are
// discarded because only calendar month and year matter.

var (
	isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	euDateRe  = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`)
)

// genericLayouts are tried verbatim against the trimmed input after the
// substring strategies fail.
var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate extracts a calendar date from a raw cell value. Strategies, in
// order: a YYYY-MM-DD substring, a DD.MM.YYYY substring (day before month),
// then a set of generic layouts. Returns ok=false when nothing parses.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := isoDateRe.FindString(s); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return naive(t), true
		}
	}

	if m := euDateRe.FindString(s); m != "" {
		if t, err := time.Parse("2.1.2006", m); err == nil {
			return naive(t), true
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), true
		}
	}

	return time.Time{}, false
}

// naive strips the zone offset, keeping the wall-clock date.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// inPeriod reports whether a date falls in the target month and year.
// An absent date is never in period.
func inPeriod(d *time.Time, month, year int) bool {
	if d == nil {
		return false
	}
	return int(d.Month()) == month && d.Year() == year
}
