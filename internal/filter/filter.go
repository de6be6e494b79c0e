package filter

import (
	"strings"
	"time"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/timeutil"
)

// Spec is a structured, ANDed set of event predicates. Nil or empty fields do
// not filter. Instant and date fields that fail to parse are ignored.
type Spec struct {
	TitleIncludes       []string `json:"title_includes,omitempty"`
	TitleExcludes       []string `json:"title_excludes,omitempty"`
	DescriptionIncludes []string `json:"description_includes,omitempty"`
	DescriptionExcludes []string `json:"description_excludes,omitempty"`
	LocationIncludes    []string `json:"location_includes,omitempty"`
	LocationExcludes    []string `json:"location_excludes,omitempty"`

	HasAttendees           *bool    `json:"has_attendees,omitempty"`
	AttendeeEmailsIncludes []string `json:"attendee_emails_includes,omitempty"`
	HasLocation            *bool    `json:"has_location,omitempty"`
	IsAllDay               *bool    `json:"is_all_day,omitempty"`

	MinDurationMinutes *int `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes *int `json:"max_duration_minutes,omitempty"`

	Status              string   `json:"status,omitempty"`
	CalendarIDsIncludes []string `json:"calendar_ids_includes,omitempty"`

	StartAfter    string `json:"start_after,omitempty"`
	StartBefore   string `json:"start_before,omitempty"`
	EndBefore     string `json:"end_before,omitempty"`
	EndAfter      string `json:"end_after,omitempty"`
	EndTimeEquals string `json:"end_time_equals,omitempty"`
	StartsOnDate  string `json:"starts_on_date,omitempty"`
	EndsOnDate    string `json:"ends_on_date,omitempty"`
}

// IsEmpty reports whether the spec has no active predicate.
func (s Spec) IsEmpty() bool {
	return len(s.compile()) == 0
}

// predicate reports whether a single event passes one dimension.
type predicate func(e calendar.Event) bool

// Apply returns the events that satisfy every predicate of spec, in their
// original order. The input slice is not modified.
func Apply(events []calendar.Event, spec Spec) []calendar.Event {
	preds := spec.compile()
	if len(preds) == 0 {
		return events
	}

	out := make([]calendar.Event, 0, len(events))
	for _, e := range events {
		if matchAll(e, preds) {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether a single event satisfies spec.
func Match(e calendar.Event, spec Spec) bool {
	return matchAll(e, spec.compile())
}

func matchAll(e calendar.Event, preds []predicate) bool {
	for _, p := range preds {
		if !p(e) {
			return false
		}
	}
	return true
}

// compile turns the active fields of the spec into predicates. Values are
// parsed once here rather than per event.
func (s Spec) compile() []predicate {
	var preds []predicate

	text := []struct {
		include, exclude []string
		field            func(calendar.Event) string
	}{
		{s.TitleIncludes, s.TitleExcludes, func(e calendar.Event) string { return e.Title }},
		{s.DescriptionIncludes, s.DescriptionExcludes, func(e calendar.Event) string { return e.Description }},
		{s.LocationIncludes, s.LocationExcludes, func(e calendar.Event) string { return e.Location }},
	}
	for _, t := range text {
		if needles := lowered(t.include); len(needles) > 0 {
			field := t.field
			preds = append(preds, func(e calendar.Event) bool { return containsAll(field(e), needles) })
		}
		if needles := lowered(t.exclude); len(needles) > 0 {
			field := t.field
			preds = append(preds, func(e calendar.Event) bool { return !containsAny(field(e), needles) })
		}
	}

	if s.HasAttendees != nil {
		want := *s.HasAttendees
		preds = append(preds, func(e calendar.Event) bool { return (len(e.Attendees) > 0) == want })
	}
	if needles := lowered(s.AttendeeEmailsIncludes); len(needles) > 0 {
		preds = append(preds, func(e calendar.Event) bool { return anyAttendeeContains(e.Attendees, needles) })
	}
	if s.HasLocation != nil {
		want := *s.HasLocation
		preds = append(preds, func(e calendar.Event) bool { return (strings.TrimSpace(e.Location) != "") == want })
	}
	if s.IsAllDay != nil {
		want := *s.IsAllDay
		preds = append(preds, func(e calendar.Event) bool { return e.AllDay() == want })
	}

	if s.MinDurationMinutes != nil {
		limit := *s.MinDurationMinutes
		preds = append(preds, func(e calendar.Event) bool {
			d, ok := durationMinutes(e)
			return ok && d >= limit
		})
	}
	if s.MaxDurationMinutes != nil {
		limit := *s.MaxDurationMinutes
		preds = append(preds, func(e calendar.Event) bool {
			d, ok := durationMinutes(e)
			return ok && d <= limit
		})
	}

	if status := strings.ToLower(strings.TrimSpace(s.Status)); status != "" {
		preds = append(preds, func(e calendar.Event) bool { return strings.ToLower(e.Status) == status })
	}
	if len(s.CalendarIDsIncludes) > 0 {
		allowed := make(map[string]bool, len(s.CalendarIDsIncludes))
		for _, id := range s.CalendarIDsIncludes {
			allowed[id] = true
		}
		preds = append(preds, func(e calendar.Event) bool { return allowed[e.Ref().CalendarID] })
	}

	if t, ok := timeutil.Parse(s.StartAfter); ok {
		preds = append(preds, func(e calendar.Event) bool {
			st, ok := e.StartTime()
			return ok && st.After(t)
		})
	}
	if t, ok := timeutil.Parse(s.StartBefore); ok {
		preds = append(preds, func(e calendar.Event) bool {
			st, ok := e.StartTime()
			return ok && st.Before(t)
		})
	}
	if t, ok := timeutil.Parse(s.EndBefore); ok {
		preds = append(preds, func(e calendar.Event) bool {
			end, ok := e.EndTime()
			return ok && end.Before(t)
		})
	}
	if t, ok := timeutil.Parse(s.EndAfter); ok {
		preds = append(preds, func(e calendar.Event) bool {
			end, ok := e.EndTime()
			return ok && end.After(t)
		})
	}
	if hh, mm, ok := parseClock(s.EndTimeEquals); ok {
		preds = append(preds, func(e calendar.Event) bool {
			end, ok := e.EndTime()
			return ok && end.Hour() == hh && end.Minute() == mm
		})
	}
	if day := strings.TrimSpace(s.StartsOnDate); day != "" {
		preds = append(preds, func(e calendar.Event) bool {
			st, ok := e.StartTime()
			return ok && timeutil.FormatDate(st) == day
		})
	}
	if day := strings.TrimSpace(s.EndsOnDate); day != "" {
		preds = append(preds, func(e calendar.Event) bool {
			end, ok := e.EndTime()
			return ok && timeutil.FormatDate(end) == day
		})
	}

	return preds
}

func durationMinutes(e calendar.Event) (int, bool) {
	start, ok := e.StartTime()
	if !ok {
		return 0, false
	}
	end, ok := e.EndTime()
	if !ok {
		return 0, false
	}
	return int(end.Sub(start) / time.Minute), true
}

// parseClock parses an HH:MM time of day.
func parseClock(s string) (int, int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

func containsAll(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		if !strings.Contains(text, n) {
			return false
		}
	}
	return true
}

func containsAny(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func anyAttendeeContains(attendees []string, needles []string) bool {
	for _, a := range attendees {
		a = strings.ToLower(a)
		for _, n := range needles {
			if strings.Contains(a, n) {
				return true
			}
		}
	}
	return false
}

// lowered returns the lowercased non-empty values of in.
func lowered(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
