package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/calendar"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func fixture() []calendar.Event {
	return []calendar.Event{
		{
			ID:         "standup",
			CalendarID: "primary",
			Title:      "Daily Standup",
			Start:      calendar.EventTime{DateTime: "2025-08-25T09:00:00+09:00"},
			End:        calendar.EventTime{DateTime: "2025-08-25T09:15:00+09:00"},
			Attendees:  []string{"alice@example.com", "bob@corp.example"},
			Status:     "confirmed",
		},
		{
			ID:          "review",
			CalendarID:  "team@group.calendar.google.com",
			Title:       "Design review",
			Description: "Quarterly roadmap",
			Location:    "Room 4",
			Start:       calendar.EventTime{DateTime: "2025-08-25T14:00:00+09:00"},
			End:         calendar.EventTime{DateTime: "2025-08-25T16:00:00+09:00"},
			Status:      "tentative",
		},
		{
			ID:         "offsite",
			CalendarID: "primary",
			Title:      "Team offsite",
			Start:      calendar.EventTime{Date: "2025-08-26"},
			End:        calendar.EventTime{Date: "2025-08-27"},
			Status:     "confirmed",
		},
		{
			ID:         "open",
			CalendarID: "primary",
			Title:      "Open ended",
			Start:      calendar.EventTime{DateTime: "2025-08-27T18:00:00+09:00"},
			Status:     "confirmed",
		},
	}
}

func ids(events []calendar.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{"empty spec", Spec{}, []string{"standup", "review", "offsite", "open"}},
		{"title includes", Spec{TitleIncludes: []string{"standup"}}, []string{"standup"}},
		{"title includes requires all needles", Spec{TitleIncludes: []string{"design", "daily"}}, []string{}},
		{"title excludes any needle", Spec{TitleExcludes: []string{"TEAM", "daily"}}, []string{"review", "open"}},
		{"description includes", Spec{DescriptionIncludes: []string{"roadmap"}}, []string{"review"}},
		{"location excludes", Spec{LocationExcludes: []string{"room"}}, []string{"standup", "offsite", "open"}},
		{"has attendees", Spec{HasAttendees: boolPtr(true)}, []string{"standup"}},
		{"no attendees", Spec{HasAttendees: boolPtr(false)}, []string{"review", "offsite", "open"}},
		{"attendee substring", Spec{AttendeeEmailsIncludes: []string{"nobody", "CORP.example"}}, []string{"standup"}},
		{"has location", Spec{HasLocation: boolPtr(true)}, []string{"review"}},
		{"all day", Spec{IsAllDay: boolPtr(true)}, []string{"offsite"}},
		{"not all day", Spec{IsAllDay: boolPtr(false)}, []string{"standup", "review", "open"}},
		{"min duration excludes open ended", Spec{MinDurationMinutes: intPtr(60)}, []string{"review", "offsite"}},
		{"max duration", Spec{MaxDurationMinutes: intPtr(15)}, []string{"standup"}},
		{"status", Spec{Status: " Tentative "}, []string{"review"}},
		{"calendar ids", Spec{CalendarIDsIncludes: []string{"team@group.calendar.google.com"}}, []string{"review"}},
		{"end before", Spec{EndBefore: "2025-08-25T12:00:00+09:00"}, []string{"standup"}},
		{"end after", Spec{EndAfter: "2025-08-25T15:00"}, []string{"review", "offsite"}},
		{"end time equals", Spec{EndTimeEquals: "16:00"}, []string{"review"}},
		{"starts on date", Spec{StartsOnDate: "2025-08-25"}, []string{"standup", "review"}},
		{"ends on date", Spec{EndsOnDate: "2025-08-27"}, []string{"offsite"}},
		{"start after", Spec{StartAfter: "2025-08-26"}, []string{"open"}},
		{"start before", Spec{StartBefore: "2025-08-25T10:00:00"}, []string{"standup"}},
		{"unparsable instant is ignored", Spec{EndBefore: "tomorrow-ish"}, []string{"standup", "review", "offsite", "open"}},
		{"unparsable clock is ignored", Spec{EndTimeEquals: "25:99"}, []string{"standup", "review", "offsite", "open"}},
		{"predicates are ANDed", Spec{StartsOnDate: "2025-08-25", HasLocation: boolPtr(false)}, []string{"standup"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(fixture(), tt.spec)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_IsOrderPreservingSubsequence(t *testing.T) {
	events := fixture()
	specs := []Spec{
		{},
		{TitleIncludes: []string{"e"}},
		{IsAllDay: boolPtr(false), MaxDurationMinutes: intPtr(120)},
		{Status: "confirmed"},
		{AttendeeEmailsIncludes: []string{"example"}},
	}
	for _, spec := range specs {
		got := Apply(events, spec)
		next := 0
		for _, g := range got {
			for next < len(events) && events[next].ID != g.ID {
				next++
			}
			require.Less(t, next, len(events), "result is not a subsequence of the input")
			next++
		}
	}
	assert.Equal(t, events, Apply(events, Spec{}))
}

func TestApply_StandupScenario(t *testing.T) {
	events := fixture()[:3]
	got := Apply(events, Spec{TitleIncludes: []string{"standup"}})
	require.Len(t, got, 1)
	assert.Equal(t, "standup", got[0].ID)
}

func TestSpecJSON(t *testing.T) {
	var spec Spec
	err := json.Unmarshal([]byte(`{"title_includes":["sync"],"has_attendees":false,"min_duration_minutes":30}`), &spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"sync"}, spec.TitleIncludes)
	require.NotNil(t, spec.HasAttendees)
	assert.False(t, *spec.HasAttendees)
	assert.Equal(t, 30, *spec.MinDurationMinutes)
	assert.False(t, spec.IsEmpty())
	assert.True(t, Spec{TitleIncludes: []string{""}}.IsEmpty())
}

func TestMatch(t *testing.T) {
	e := fixture()[0]
	assert.True(t, Match(e, Spec{}))
	assert.True(t, Match(e, Spec{TitleIncludes: []string{"STAND"}}))
	assert.False(t, Match(e, Spec{HasLocation: boolPtr(true)}))
}
