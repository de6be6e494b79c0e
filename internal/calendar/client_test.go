package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/calassist/internal/timeutil"
)

// fakeAPI is a minimal in-process stand-in for the Calendar v3 REST API.
type fakeAPI struct {
	mu        sync.Mutex
	calendars []map[string]any
	events    map[string][]map[string]any // calendar id -> events
	failing   map[string]bool
	requests  []*http.Request
	bodies    []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))

	path := strings.TrimPrefix(r.URL.Path, "/calendar/v3/")
	w.Header().Set("Content-Type", "application/json")

	if path == "users/me/calendarList" {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": f.calendars})
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != "calendars" || parts[2] != "events" {
		http.NotFound(w, r)
		return
	}
	calID := parts[1]
	if f.failing[calID] {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
		return
	}

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"items": f.events[calID]})
		case http.MethodPost:
			var ev map[string]any
			_ = json.Unmarshal(body, &ev)
			ev["id"] = "new1"
			_ = json.NewEncoder(w).Encode(ev)
		}
		return
	}

	eventID := parts[3]
	var found map[string]any
	for _, ev := range f.events[calID] {
		if ev["id"] == eventID {
			found = ev
		}
	}
	if found == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
		return
	}
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(found)
	case http.MethodPatch:
		var patch map[string]any
		_ = json.Unmarshal(body, &patch)
		for k, v := range patch {
			found[k] = v
		}
		_ = json.NewEncoder(w).Encode(found)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeAPI) lastRequest(method string) (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method {
			return f.requests[i], f.bodies[i]
		}
	}
	return nil, ""
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	factory := func(ctx context.Context, sessionID string) (*calendar.Service, error) {
		return calendar.NewService(ctx,
			option.WithEndpoint(srv.URL+"/calendar/v3/"),
			option.WithHTTPClient(srv.Client()))
	}
	now := time.Date(2025, 8, 25, 10, 0, 0, 0, timeutil.KST)
	return NewClient(factory, WithClock(func() time.Time { return now }))
}

func timed(id, title, start, end string) map[string]any {
	return map[string]any{
		"id":      id,
		"summary": title,
		"start":   map[string]any{"dateTime": start},
		"end":     map[string]any{"dateTime": end},
		"status":  "confirmed",
	}
}

func TestListEvents_MergesAndSorts(t *testing.T) {
	api := &fakeAPI{
		calendars: []map[string]any{
			{"id": "primary"},
			{"id": "team@group.calendar.google.com"},
			{"id": "ko.south_korea#holiday@group.v.calendar.google.com", "summary": "Holidays in South Korea"},
		},
		events: map[string][]map[string]any{
			"primary": {
				timed("p2", "Review", "2025-08-26T15:00:00+09:00", "2025-08-26T16:00:00+09:00"),
			},
			"team@group.calendar.google.com": {
				timed("t1", "Standup", "2025-08-26T09:00:00+09:00", "2025-08-26T09:15:00+09:00"),
			},
			"ko.south_korea#holiday@group.v.calendar.google.com": {
				{"id": "h1", "summary": "Holiday", "start": map[string]any{"date": "2025-10-03"}, "end": map[string]any{"date": "2025-10-04"}},
			},
		},
	}
	client := newTestClient(t, api)

	events, err := client.ListEvents(context.Background(), "s1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "t1", events[0].ID)
	assert.Equal(t, "team@group.calendar.google.com", events[0].CalendarID)
	assert.Equal(t, "p2", events[1].ID)
	assert.Equal(t, "primary", events[1].CalendarID)

	req, _ := api.lastRequest(http.MethodGet)
	require.NotNil(t, req)
	q := req.URL.Query()
	assert.Equal(t, "2025-08-25T00:00:00+09:00", q.Get("timeMin"))
	assert.Equal(t, "2025-12-31T23:59:59+09:00", q.Get("timeMax"))
	assert.Equal(t, "true", q.Get("singleEvents"))
	assert.Equal(t, "startTime", q.Get("orderBy"))
	assert.NotContains(t, q["eventTypes"], "birthday")
	assert.Contains(t, q["eventTypes"], "default")

	withHolidays, err := client.ListEvents(context.Background(), "s1", ListOptions{IncludeHolidays: true})
	require.NoError(t, err)
	assert.Len(t, withHolidays, 3)
}

func TestListEvents_SkipsFailingCalendar(t *testing.T) {
	api := &fakeAPI{
		calendars: []map[string]any{{"id": "primary"}, {"id": "broken"}},
		events: map[string][]map[string]any{
			"primary": {timed("p1", "Lunch", "2025-08-26T12:00:00+09:00", "2025-08-26T13:00:00+09:00")},
		},
		failing: map[string]bool{"broken": true},
	}
	client := newTestClient(t, api)

	events, err := client.ListEvents(context.Background(), "s1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "p1", events[0].ID)
}

func TestListEvents_PrefersSelectedCalendars(t *testing.T) {
	api := &fakeAPI{
		calendars: []map[string]any{{"id": "primary", "selected": true}, {"id": "other"}},
		events: map[string][]map[string]any{
			"primary": {timed("p1", "A", "2025-08-26T12:00:00+09:00", "2025-08-26T13:00:00+09:00")},
			"other":   {timed("o1", "B", "2025-08-26T12:00:00+09:00", "2025-08-26T13:00:00+09:00")},
		},
	}
	client := newTestClient(t, api)

	events, err := client.ListEvents(context.Background(), "s1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "p1", events[0].ID)
}

func TestInsertEvent_SendUpdates(t *testing.T) {
	api := &fakeAPI{events: map[string][]map[string]any{}}
	client := newTestClient(t, api)

	title := "Planning"
	start := At(time.Date(2025, 8, 25, 13, 0, 0, 0, timeutil.KST))
	end := At(time.Date(2025, 8, 25, 14, 0, 0, 0, timeutil.KST))
	attendees := []string{"a@example.com"}

	ev, err := client.InsertEvent(context.Background(), "s1", "", Body{
		Title: &title, Start: &start, End: &end, Attendees: &attendees,
	}, SendUpdatesAll)
	require.NoError(t, err)
	assert.Equal(t, "new1", ev.ID)
	assert.Equal(t, "primary", ev.CalendarID)
	assert.Equal(t, []string{"a@example.com"}, ev.Attendees)

	req, body := api.lastRequest(http.MethodPost)
	require.NotNil(t, req)
	assert.Equal(t, "all", req.URL.Query().Get("sendUpdates"))
	assert.Contains(t, body, `"summary":"Planning"`)
	assert.Contains(t, body, `"dateTime":"2025-08-25T13:00:00+09:00"`)
}

func TestInsertEvent_DefaultOmitsSendUpdates(t *testing.T) {
	api := &fakeAPI{events: map[string][]map[string]any{}}
	client := newTestClient(t, api)

	start := At(time.Date(2025, 8, 25, 13, 0, 0, 0, timeutil.KST))
	end := At(time.Date(2025, 8, 25, 14, 0, 0, 0, timeutil.KST))
	ev, err := client.InsertEvent(context.Background(), "s1", "primary", Body{Start: &start, End: &end}, SendUpdatesDefault)
	require.NoError(t, err)
	assert.Equal(t, UntitledPlaceholder, ev.Title)

	req, _ := api.lastRequest(http.MethodPost)
	assert.Empty(t, req.URL.Query().Get("sendUpdates"))
}

func TestPatchEvent_ProbesOwnerCalendar(t *testing.T) {
	api := &fakeAPI{
		calendars: []map[string]any{{"id": "primary"}, {"id": "team"}},
		events: map[string][]map[string]any{
			"team": {timed("t1", "Standup", "2025-08-26T09:00:00+09:00", "2025-08-26T09:15:00+09:00")},
		},
	}
	client := newTestClient(t, api)

	title := "Daily standup"
	ev, err := client.PatchEvent(context.Background(), "s1", "primary", "t1", Body{Title: &title}, SendUpdatesNone)
	require.NoError(t, err)
	assert.Equal(t, "team", ev.CalendarID)
	assert.Equal(t, "Daily standup", ev.Title)

	req, _ := api.lastRequest(http.MethodPatch)
	require.NotNil(t, req)
	assert.Contains(t, req.URL.Path, "/calendars/team/events/t1")
	assert.Equal(t, "none", req.URL.Query().Get("sendUpdates"))
}

func TestPatchEvent_NotFoundAnywhere(t *testing.T) {
	api := &fakeAPI{
		calendars: []map[string]any{{"id": "primary"}},
		events:    map[string][]map[string]any{},
	}
	client := newTestClient(t, api)

	title := "x"
	_, err := client.PatchEvent(context.Background(), "s1", "primary", "missing", Body{Title: &title}, SendUpdatesDefault)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteEvent(t *testing.T) {
	api := &fakeAPI{
		events: map[string][]map[string]any{
			"primary": {timed("p1", "Lunch", "2025-08-26T12:00:00+09:00", "2025-08-26T13:00:00+09:00")},
		},
	}
	client := newTestClient(t, api)

	require.NoError(t, client.DeleteEvent(context.Background(), "s1", "primary", "p1"))

	err := client.DeleteEvent(context.Background(), "s1", "primary", "gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Not Found")
}

func TestGetEvent(t *testing.T) {
	api := &fakeAPI{
		events: map[string][]map[string]any{
			"primary": {timed("p1", "", "2025-08-26T12:00:00+09:00", "2025-08-26T13:00:00+09:00")},
		},
	}
	client := newTestClient(t, api)

	ev, err := client.GetEvent(context.Background(), "s1", "", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", ev.ID)
	assert.Equal(t, UntitledPlaceholder, ev.View().Title)
}

func TestServiceFactoryError(t *testing.T) {
	client := NewClient(func(ctx context.Context, sessionID string) (*calendar.Service, error) {
		return nil, errors.New("no credential")
	})
	_, err := client.ListEvents(context.Background(), "s1", ListOptions{})
	assert.EqualError(t, err, "no credential")
}
