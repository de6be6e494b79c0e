package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/calassist/internal/timeutil"
)

func TestToEvent(t *testing.T) {
	assert.Equal(t, Event{}, toEvent(nil, "primary"))

	ev := toEvent(&calendar.Event{
		Id:      "e1",
		Summary: "Sync",
		Start:   &calendar.EventDateTime{DateTime: "2025-08-25T13:00:00+09:00"},
		End:     &calendar.EventDateTime{DateTime: "2025-08-25T14:00:00+09:00"},
		Attendees: []*calendar.EventAttendee{
			{Email: "A@example.com"},
			{Email: "a@example.com"},
			{Email: ""},
			{Email: "b@example.com"},
		},
	}, "")

	assert.Equal(t, "primary", ev.CalendarID)
	assert.Equal(t, []string{"A@example.com", "b@example.com"}, ev.Attendees)
	assert.False(t, ev.AllDay())
	assert.Equal(t, Ref{EventID: "e1", CalendarID: "primary"}, ev.Ref())
}

func TestEventTime(t *testing.T) {
	allDay := OnDate("2025-08-25")
	assert.True(t, allDay.AllDay())
	at, ok := allDay.Time()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 8, 25, 0, 0, 0, 0, timeutil.KST), at)

	utc := EventTime{DateTime: "2025-08-25T04:00:00Z"}
	at, ok = utc.Time()
	assert.True(t, ok)
	assert.Equal(t, 13, at.Hour())

	_, ok = EventTime{}.Time()
	assert.False(t, ok)
	_, ok = EventTime{DateTime: "not a time"}.Time()
	assert.False(t, ok)
}

func TestView(t *testing.T) {
	v := Event{ID: "e1", Start: OnDate("2025-08-25"), End: OnDate("2025-08-26")}.View()
	assert.Equal(t, UntitledPlaceholder, v.Title)
	assert.Equal(t, "primary", v.CalendarID)
	assert.Equal(t, "2025-08-25", v.Start)
	assert.NotNil(t, v.Attendees)
}

func TestToGoogleEvent(t *testing.T) {
	empty := ""
	none := []string{}
	ev := toGoogleEvent(Body{Location: &empty, Attendees: &none})
	assert.Contains(t, ev.NullFields, "Location")
	assert.Contains(t, ev.ForceSendFields, "Attendees")

	start := OnDate("2025-08-25")
	ev = toGoogleEvent(Body{Start: &start})
	assert.Equal(t, "2025-08-25", ev.Start.Date)
	assert.Empty(t, ev.Start.DateTime)
}

func TestClassifyCalendar(t *testing.T) {
	tests := []struct {
		entry *calendar.CalendarListEntry
		want  CalendarKind
	}{
		{&calendar.CalendarListEntry{Id: "primary"}, KindNormal},
		{&calendar.CalendarListEntry{Id: "en.usa#holiday@group.v.calendar.google.com"}, KindHoliday},
		{&calendar.CalendarListEntry{Id: "x", Summary: "Holidays in Korea"}, KindHoliday},
		{&calendar.CalendarListEntry{Id: "addressbook#contacts@group.v.calendar.google.com"}, KindBirthday},
		{&calendar.CalendarListEntry{Id: "y", SummaryOverride: "Birthdays"}, KindBirthday},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyCalendar(tt.entry), tt.entry.Id)
	}
}
