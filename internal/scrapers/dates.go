package scrapers

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// reiwaEpochOffset converts a Reiwa regnal year to a Gregorian year.
// Reiwa 1 began in 2019, so year = 2018 + era_year.
const reiwaEpochOffset = 2018

var (
	jpDateRe   = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	reiwaRe    = regexp.MustCompile(`^R(\d+)\.(\d+)\.(\d+)`)
	monthRe    = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	monthRange = regexp.MustCompile(`^(\d{4})-(\d{2})~(\d{4})-(\d{2})$`)
)

var flexibleLayouts = []string{
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006-01-02",
	"01/02/2006",
	time.RFC3339,
}

// ParseFlexible parses Western date strings in the formats the regulator
// sites use: free-text month names, ISO dates, and a few common variants.
// Returns nil when nothing matches; callers treat that as "date unknown",
// not as an error.
func ParseFlexible(s string) *time.Time {
	if s == "" {
		return nil
	}
	clean := strings.ReplaceAll(s, "Published:", "")
	clean = strings.ReplaceAll(clean, "Last updated:", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}

	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, clean); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// ParseJapanese parses the two date dialects on the Soumu listing:
// the plain form 2025年11月25日 and the Reiwa era form R7.1.17.
func ParseJapanese(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := jpDateRe.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := reiwaRe.FindStringSubmatch(s); m != nil {
		return makeDate(reiwaEpochOffset+atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	return nil
}

func makeDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		// day overflowed into the next month (e.g. Feb 30)
		return nil
	}
	return &t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// RangeBoundaries computes the [start, end] window for a date-range token:
// today, this-week, last-week, this-month, last-month, YYYY-MM, or
// YYYY-MM~YYYY-MM. Weeks run Monday through Sunday. Unrecognized tokens
// default to the current month. The reference time is injected so tests
// are deterministic.
func RangeBoundaries(rangeType string, now time.Time) (time.Time, time.Time) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch rangeType {
	case "today":
		return dayStart, dayStart.AddDate(0, 0, 1).Add(-time.Second)

	case "this-week":
		weekday := (int(now.Weekday()) + 6) % 7 // Monday = 0
		weekStart := dayStart.AddDate(0, 0, -weekday)
		return weekStart, weekStart.AddDate(0, 0, 7).Add(-time.Second)

	case "last-week":
		weekday := (int(now.Weekday()) + 6) % 7
		weekStart := dayStart.AddDate(0, 0, -weekday-7)
		return weekStart, weekStart.AddDate(0, 0, 7).Add(-time.Second)

	case "this-month":
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart, monthStart.AddDate(0, 1, 0).Add(-time.Second)

	case "last-month":
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return monthStart, monthStart.AddDate(0, 1, 0).Add(-time.Second)
	}

	if m := monthRange.FindStringSubmatch(rangeType); m != nil {
		start := time.Date(atoi(m[1]), time.Month(atoi(m[2])), 1, 0, 0, 0, 0, now.Location())
		end := time.Date(atoi(m[3]), time.Month(atoi(m[4])), 1, 0, 0, 0, 0, now.Location()).
			AddDate(0, 1, 0).Add(-time.Second)
		return start, end
	}

	if m := monthRe.FindStringSubmatch(rangeType); m != nil {
		start := time.Date(atoi(m[1]), time.Month(atoi(m[2])), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0).Add(-time.Second)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return monthStart, monthStart.AddDate(0, 1, 0).Add(-time.Second)
}

// InRange reports whether a parsed date falls inside the window for
// rangeType. A nil date always passes: items with unparseable dates are
// kept rather than silently dropped, and "all" disables filtering.
func InRange(date *time.Time, rangeType string, now time.Time) bool {
	if date == nil || rangeType == "" || rangeType == "all" {
		return true
	}
	start, end := RangeBoundaries(rangeType, now)
	return !date.Before(start) && !date.After(end)
}

// FormatDisplay renders a date as YYYY-MM-DD for preview payloads.
func FormatDisplay(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.Format("2006-01-02")
}
