package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/session"
)

const testSession = "session-1"

type insertCall struct {
	CalendarID string
	Body       calendar.Body
	Send       calendar.SendUpdates
}

type patchCall struct {
	Ref  calendar.Ref
	Body calendar.Body
	Send calendar.SendUpdates
}

// fakeProvider keeps events in memory and records every mutating call.
type fakeProvider struct {
	mu     sync.Mutex
	events []calendar.Event
	nextID int

	lists   []calendar.ListOptions
	gets    []calendar.Ref
	inserts []insertCall
	patches []patchCall
	deletes []calendar.Ref

	insertErr error
	patchErr  map[string]error
	deleteErr map[string]error
	listErr   error
	listPanic bool
}

func newFakeProvider(events ...calendar.Event) *fakeProvider {
	return &fakeProvider{
		events:    events,
		patchErr:  map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeProvider) ListEvents(ctx context.Context, sessionID string, opts calendar.ListOptions) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, opts)
	if f.listPanic {
		panic("list exploded")
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []calendar.Event
	for _, e := range f.events {
		if opts.Query != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(opts.Query)) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeProvider) GetEvent(ctx context.Context, sessionID, calendarID, eventID string) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, calendar.Ref{EventID: eventID, CalendarID: calendarID})
	if i := f.find(calendarID, eventID); i >= 0 {
		e := f.events[i]
		return &e, nil
	}
	return nil, fmt.Errorf("Not Found: %w", calendar.ErrNotFound)
}

func (f *fakeProvider) InsertEvent(ctx context.Context, sessionID, calendarID string, body calendar.Body, send calendar.SendUpdates) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, insertCall{CalendarID: calendarID, Body: body, Send: send})
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	e := applyBody(calendar.Event{ID: fmt.Sprintf("new-%d", f.nextID), CalendarID: calendarID}, body)
	f.events = append(f.events, e)
	return &e, nil
}

func (f *fakeProvider) PatchEvent(ctx context.Context, sessionID, calendarID, eventID string, body calendar.Body, send calendar.SendUpdates) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{Ref: calendar.Ref{EventID: eventID, CalendarID: calendarID}, Body: body, Send: send})
	if err := f.patchErr[eventID]; err != nil {
		return nil, err
	}
	i := f.find(calendarID, eventID)
	if i < 0 {
		return nil, fmt.Errorf("Not Found: %w", calendar.ErrNotFound)
	}
	f.events[i] = applyBody(f.events[i], body)
	e := f.events[i]
	return &e, nil
}

func (f *fakeProvider) DeleteEvent(ctx context.Context, sessionID, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, calendar.Ref{EventID: eventID, CalendarID: calendarID})
	if err := f.deleteErr[eventID]; err != nil {
		return err
	}
	i := f.find(calendarID, eventID)
	if i < 0 {
		return fmt.Errorf("Not Found: %w", calendar.ErrNotFound)
	}
	f.events = append(f.events[:i], f.events[i+1:]...)
	return nil
}

func (f *fakeProvider) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts) + len(f.patches) + len(f.deletes)
}

func (f *fakeProvider) find(calendarID, eventID string) int {
	for i, e := range f.events {
		if e.ID == eventID && e.CalendarID == calendarID {
			return i
		}
	}
	return -1
}

func applyBody(e calendar.Event, b calendar.Body) calendar.Event {
	if b.Title != nil {
		e.Title = *b.Title
	}
	if b.Start != nil {
		e.Start = *b.Start
	}
	if b.End != nil {
		e.End = *b.End
	}
	if b.Description != nil {
		e.Description = *b.Description
	}
	if b.Location != nil {
		e.Location = *b.Location
	}
	if b.Attendees != nil {
		e.Attendees = append([]string(nil), *b.Attendees...)
	}
	return e
}

func timed(id, calendarID, title, start, end string, attendees ...string) calendar.Event {
	return calendar.Event{
		ID:         id,
		CalendarID: calendarID,
		Title:      title,
		Start:      calendar.EventTime{DateTime: start},
		End:        calendar.EventTime{DateTime: end},
		Attendees:  attendees,
		Status:     "confirmed",
	}
}

// fixture returns four events on 2025-08-25..27. Two titles contain
// "design"; only the design review has attendees.
func fixture() []calendar.Event {
	return []calendar.Event{
		timed("evt-standup", "primary", "Daily standup", "2025-08-25T09:00:00+09:00", "2025-08-25T09:30:00+09:00"),
		timed("evt-review", "primary", "Design review", "2025-08-25T14:00:00+09:00", "2025-08-25T15:00:00+09:00", "alice@example.com"),
		timed("evt-lunch", "team", "Team lunch", "2025-08-26T12:00:00+09:00", "2025-08-26T13:00:00+09:00"),
		timed("evt-sync", "team", "Design sync", "2025-08-27T10:00:00+09:00", "2025-08-27T11:00:00+09:00"),
	}
}

type harness struct {
	provider *fakeProvider
	store    *session.MemoryStore
	d        *Dispatcher
}

func newHarness(t *testing.T, events ...calendar.Event) *harness {
	t.Helper()
	if events == nil {
		events = fixture()
	}
	provider := newFakeProvider(events...)
	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return &harness{
		provider: provider,
		store:    store,
		d:        NewDispatcher(provider, store),
	}
}

func (h *harness) call(t *testing.T, tool, args string) Result {
	t.Helper()
	return h.d.Dispatch(context.Background(), tool, testSession, json.RawMessage(args))
}

// one asserts the result holds exactly one action and returns it.
func (h *harness) one(t *testing.T, tool, args string) Action {
	t.Helper()
	res := h.call(t, tool, args)
	require.Len(t, res.Actions, 1, "actions: %+v", res.Actions)
	return res.Actions[0]
}

func (h *harness) state(t *testing.T) *session.State {
	t.Helper()
	state, err := session.Load(context.Background(), h.store, testSession)
	require.NoError(t, err)
	return state
}

// list lists the default window so indexes are available.
func (h *harness) list(t *testing.T) []calendar.View {
	t.Helper()
	a := h.one(t, ToolListEvents, `{}`)
	require.NotNil(t, a.List)
	return *a.List
}
