package util

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses a trading day as UTC midnight. It accepts 2006-01-02 and,
// for feeds that stamp bars with a time, RFC3339 truncated to its calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayOf(t), true
	}
	return time.Time{}, false
}

// DayOf returns the calendar day of t (in t's own location) as UTC midnight.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
