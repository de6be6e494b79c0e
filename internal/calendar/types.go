package calendar

import (
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/calassist/internal/timeutil"
)

// PrimaryCalendarID addresses the authenticated user's default calendar.
const PrimaryCalendarID = "primary"

// UntitledPlaceholder is shown for events without a title.
const UntitledPlaceholder = "(no title)"

// EventTime is either a timed instant (DateTime, RFC 3339) or an all-day
// date (Date, YYYY-MM-DD). Exactly one of the two is set on provider data.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// At returns an EventTime for a timed instant rendered in KST.
func At(t time.Time) EventTime {
	return EventTime{DateTime: timeutil.Format(t)}
}

// OnDate returns an all-day EventTime.
func OnDate(date string) EventTime {
	return EventTime{Date: date}
}

// IsZero reports whether neither field is set.
func (t EventTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// AllDay reports whether the value is a date without a time of day.
func (t EventTime) AllDay() bool {
	return t.DateTime == "" && t.Date != ""
}

// String returns the raw wire value, preferring DateTime.
func (t EventTime) String() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// Time converts the value to an instant in KST. All-day dates map to
// midnight KST. The boolean is false when the value is empty or malformed.
func (t EventTime) Time() (time.Time, bool) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.In(timeutil.KST), true
	}
	if t.Date != "" {
		parsed, err := time.ParseInLocation(timeutil.DateLayout, t.Date, timeutil.KST)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// Event is the normalized view of one provider calendar occurrence.
type Event struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	Title       string    `json:"title,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Status      string    `json:"status,omitempty"`
	EventType   string    `json:"eventType,omitempty"`
}

// Ref returns the (event id, calendar id) pair that addresses the event.
func (e Event) Ref() Ref {
	return Ref{EventID: e.ID, CalendarID: calendarOrPrimary(e.CalendarID)}
}

// DisplayTitle returns the title or a placeholder when it is empty.
func (e Event) DisplayTitle() string {
	if strings.TrimSpace(e.Title) == "" {
		return UntitledPlaceholder
	}
	return e.Title
}

// AllDay reports whether the event starts on a date without a time of day.
func (e Event) AllDay() bool {
	return e.Start.AllDay()
}

// StartTime returns the start instant in KST.
func (e Event) StartTime() (time.Time, bool) {
	return e.Start.Time()
}

// EndTime returns the end instant in KST.
func (e Event) EndTime() (time.Time, bool) {
	return e.End.Time()
}

// View converts the event into its compact action representation.
func (e Event) View() View {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return View{
		ID:          e.ID,
		CalendarID:  calendarOrPrimary(e.CalendarID),
		Title:       e.DisplayTitle(),
		Start:       e.Start.String(),
		End:         e.End.String(),
		Description: e.Description,
		Location:    e.Location,
		Attendees:   attendees,
		Status:      e.Status,
	}
}

// Ref identifies an event by id together with its owning calendar.
type Ref struct {
	EventID    string `json:"id"`
	CalendarID string `json:"calendarId"`
}

// View is the compact event representation returned to the LLM and the UI.
type View struct {
	Idx         int      `json:"idx,omitempty"`
	ID          string   `json:"id"`
	CalendarID  string   `json:"calendarId"`
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees"`
	Status      string   `json:"status,omitempty"`
}

// Body describes an event to insert, or the fields to change in a patch.
// Nil fields are left untouched by a patch.
type Body struct {
	Title       *string    `json:"title,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Attendees   *[]string  `json:"attendees,omitempty"`
}

// AttendeeList returns the attendees carried by the body, or nil.
func (b Body) AttendeeList() []string {
	if b.Attendees == nil {
		return nil
	}
	return *b.Attendees
}

// IsEmpty reports whether the body changes nothing.
func (b Body) IsEmpty() bool {
	return b.Title == nil && b.Start == nil && b.End == nil &&
		b.Description == nil && b.Location == nil && b.Attendees == nil
}

// SendUpdates is the provider flag controlling attendee notification mail.
type SendUpdates string

const (
	// SendUpdatesDefault leaves the decision to the provider.
	SendUpdatesDefault SendUpdates = ""
	// SendUpdatesAll mails every attendee.
	SendUpdatesAll SendUpdates = "all"
	// SendUpdatesNone suppresses attendee mail.
	SendUpdatesNone SendUpdates = "none"
)

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID         string       `json:"id"`
	Summary    string       `json:"summary"`
	Primary    bool         `json:"primary,omitempty"`
	Selected   bool         `json:"selected,omitempty"`
	AccessRole string       `json:"accessRole,omitempty"` // "owner", "writer", "reader", "freeBusyReader"
	Kind       CalendarKind `json:"kind"`
}

// CalendarKind classifies secondary calendars that are hidden by default.
type CalendarKind string

const (
	KindNormal   CalendarKind = "normal"
	KindHoliday  CalendarKind = "holiday"
	KindBirthday CalendarKind = "birthday"
)

func calendarOrPrimary(id string) string {
	if id == "" {
		return PrimaryCalendarID
	}
	return id
}

// toEvent converts a Google Calendar event to an Event owned by calendarID.
func toEvent(event *calendar.Event, calendarID string) Event {
	if event == nil {
		return Event{}
	}
	e := Event{
		ID:          event.Id,
		CalendarID:  calendarOrPrimary(calendarID),
		Title:       event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		EventType:   event.EventType,
	}
	if event.Start != nil {
		e.Start = EventTime{DateTime: event.Start.DateTime, Date: event.Start.Date}
	}
	if event.End != nil {
		e.End = EventTime{DateTime: event.End.DateTime, Date: event.End.Date}
	}

	seen := make(map[string]bool)
	for _, att := range event.Attendees {
		if att == nil || att.Email == "" {
			continue
		}
		key := strings.ToLower(att.Email)
		if seen[key] {
			continue
		}
		seen[key] = true
		e.Attendees = append(e.Attendees, att.Email)
	}
	return e
}

// toGoogleEvent converts a Body into the wire representation used for
// insert and patch calls.
func toGoogleEvent(b Body) *calendar.Event {
	ev := &calendar.Event{}
	if b.Title != nil {
		ev.Summary = *b.Title
		if ev.Summary == "" {
			ev.NullFields = append(ev.NullFields, "Summary")
		}
	}
	if b.Start != nil {
		ev.Start = toEventDateTime(*b.Start)
	}
	if b.End != nil {
		ev.End = toEventDateTime(*b.End)
	}
	if b.Description != nil {
		ev.Description = *b.Description
		if ev.Description == "" {
			ev.NullFields = append(ev.NullFields, "Description")
		}
	}
	if b.Location != nil {
		ev.Location = *b.Location
		if ev.Location == "" {
			ev.NullFields = append(ev.NullFields, "Location")
		}
	}
	if b.Attendees != nil {
		if len(*b.Attendees) == 0 {
			ev.ForceSendFields = append(ev.ForceSendFields, "Attendees")
			ev.Attendees = []*calendar.EventAttendee{}
		}
		for _, email := range *b.Attendees {
			ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: email})
		}
	}
	return ev
}

func toEventDateTime(t EventTime) *calendar.EventDateTime {
	if t.AllDay() {
		return &calendar.EventDateTime{Date: t.Date}
	}
	return &calendar.EventDateTime{DateTime: t.DateTime, TimeZone: "Asia/Seoul"}
}

// classifyCalendar mirrors how the provider names holiday and contact
// birthday calendars.
func classifyCalendar(entry *calendar.CalendarListEntry) CalendarKind {
	id := strings.ToLower(entry.Id)
	summary := strings.ToLower(entry.SummaryOverride)
	if summary == "" {
		summary = strings.ToLower(entry.Summary)
	}
	switch {
	case strings.Contains(id, "holiday") || strings.Contains(summary, "holiday"):
		return KindHoliday
	case strings.HasPrefix(id, "addressbook#"),
		strings.HasSuffix(id, "contacts@group.v.calendar.google.com"),
		strings.Contains(id, "birthday"),
		strings.Contains(summary, "birthdays"):
		return KindBirthday
	}
	return KindNormal
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:         entry.Id,
		Summary:    entry.Summary,
		Primary:    entry.Primary,
		Selected:   entry.Selected,
		AccessRole: entry.AccessRole,
		Kind:       classifyCalendar(entry),
	}
}
