package timeutil

import (
	"strings"
	"time"
)

// KST is the fixed interpretation zone for all user and tool input.
var KST = time.FixedZone("KST", 9*60*60)

// DateLayout is the layout of an all-day date value.
const DateLayout = "2006-01-02"

// DefaultDuration is added to a start time when an event has no usable end.
const DefaultDuration = time.Hour

// wallClockLayouts are tried in order after the offset-aware RFC 3339 forms.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Parse interprets s as a KST wall-clock instant.
//
// A bare date (YYYY-MM-DD) means midnight KST. Any other ISO 8601 value keeps
// its wall-clock fields and is re-anchored to KST. The boolean is false when
// s is empty or cannot be parsed.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if len(s) == len(DateLayout) {
		if t, err := time.ParseInLocation(DateLayout, s, KST); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return rebase(t), true
	}

	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, s, KST); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseEnd is Parse for the upper bound of a range: a bare date covers the
// whole day and maps to the following midnight.
func ParseEnd(s string) (time.Time, bool) {
	t, ok := Parse(s)
	if ok && len(strings.TrimSpace(s)) == len(DateLayout) {
		t = t.AddDate(0, 0, 1)
	}
	return t, ok
}

// rebase keeps the wall-clock fields of t and swaps its zone for KST.
func rebase(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), KST)
}

// Format renders t as RFC 3339 in KST, e.g. 2025-08-25T13:00:00+09:00.
func Format(t time.Time) string {
	return t.In(KST).Format(time.RFC3339)
}

// FormatDate renders the KST calendar date of t.
func FormatDate(t time.Time) string {
	return t.In(KST).Format(DateLayout)
}

// StartOfDay returns midnight KST of the day containing t.
func StartOfDay(t time.Time) time.Time {
	k := t.In(KST)
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, KST)
}

// DefaultWindow returns the listing window used when a caller gives no range:
// today 00:00 KST through December 31 23:59:59 KST of the current year.
func DefaultWindow(now time.Time) (time.Time, time.Time) {
	k := now.In(KST)
	return StartOfDay(k), time.Date(k.Year(), time.December, 31, 23, 59, 59, 0, KST)
}

// EnsureEnd returns end when it is set and after start, otherwise start
// plus DefaultDuration.
func EnsureEnd(start, end time.Time) time.Time {
	if end.IsZero() || !end.After(start) {
		return start.Add(DefaultDuration)
	}
	return end
}

// Friendly renders a human-readable KST date such as "Monday, August 25, 2025".
func Friendly(t time.Time) string {
	return t.In(KST).Format("Monday, January 2, 2006")
}
