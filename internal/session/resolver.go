package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/filter"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/timeutil"
)

// ErrIndexOutOfRange is returned when an index does not address an item of
// the last list.
var ErrIndexOutOfRange = errors.New("session: index out of range")

// wherePadding widens a "where" query window on both sides so events on a
// boundary are not lost to timezone conversion at the provider.
const wherePadding = 24 * time.Hour

// Where describes a set of events by window, free text and filters.
type Where struct {
	From             string       `json:"from,omitempty"`
	To               string       `json:"to,omitempty"`
	Query            string       `json:"query,omitempty"`
	IncludeHolidays  bool         `json:"include_holidays,omitempty"`
	IncludeBirthdays bool         `json:"include_birthdays,omitempty"`
	Filters          *filter.Spec `json:"filters,omitempty"`
}

// Resolver maps user references to provider events for a session.
type Resolver struct {
	store    Store
	provider calendar.Provider
	logger   *slog.Logger
}

// NewResolver creates a resolver backed by store and provider.
func NewResolver(store Store, provider calendar.Provider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, provider: provider, logger: logger}
}

// Store returns the underlying session store.
func (r *Resolver) Store() Store {
	return r.store
}

// MapIndexToPair returns the reference at 1-based position idx of the last
// list. It never calls the provider.
func (r *Resolver) MapIndexToPair(ctx context.Context, sessionID string, idx int) (calendar.Ref, error) {
	state, err := Load(ctx, r.store, sessionID)
	if err != nil {
		return calendar.Ref{}, err
	}
	ref, ok := state.refAt(idx)
	if !ok {
		return calendar.Ref{}, ErrIndexOutOfRange
	}
	return ref, nil
}

// FindCalendarForID returns the calendar that owns eventID. The cached list is
// consulted first; on a miss the full default window is listed again.
func (r *Resolver) FindCalendarForID(ctx context.Context, sessionID, eventID string) (string, error) {
	state, err := Load(ctx, r.store, sessionID)
	if err != nil {
		return "", err
	}
	if calID, ok := state.calendarFor(eventID); ok {
		return calID, nil
	}

	events, err := r.Refresh(ctx, sessionID)
	if err != nil {
		return "", err
	}
	for _, e := range events {
		if e.ID == eventID {
			return e.Ref().CalendarID, nil
		}
	}
	return "", calendar.ErrNotFound
}

// FindSnapshotItem returns the cached record for an event, or false when it
// is not cached. An empty calendarID matches any calendar.
func (r *Resolver) FindSnapshotItem(ctx context.Context, sessionID, eventID, calendarID string) (*calendar.Event, bool) {
	state, err := Load(ctx, r.store, sessionID)
	if err != nil {
		r.logger.Debug("snapshot lookup failed", logging.Session(sessionID), logging.Err(err))
		return nil, false
	}
	return state.snapshotItem(eventID, calendarID)
}

// Remember stores events as the session's last list.
func (r *Resolver) Remember(ctx context.Context, sessionID string, events []calendar.Event) error {
	state, err := Load(ctx, r.store, sessionID)
	if err != nil {
		return err
	}
	state.SetList(events)
	return r.store.Save(ctx, sessionID, state)
}

// Refresh lists the default window unfiltered and replaces the cached list.
func (r *Resolver) Refresh(ctx context.Context, sessionID string) ([]calendar.Event, error) {
	events, err := r.provider.ListEvents(ctx, sessionID, calendar.ListOptions{})
	if err != nil {
		return nil, err
	}
	if err := r.Remember(ctx, sessionID, events); err != nil {
		return nil, err
	}
	return events, nil
}

// ResolveWhere lists the events described by where.
//
// The provider is queried with the window padded by a day on each side, then
// the result is clipped to events overlapping the requested window and the
// filters are applied. A bare date in To covers that whole day. A nil where
// yields no events.
func (r *Resolver) ResolveWhere(ctx context.Context, sessionID string, where *Where) ([]calendar.Event, error) {
	if where == nil {
		return nil, nil
	}

	from, hasFrom := timeutil.Parse(where.From)
	to, hasTo := timeutil.ParseEnd(where.To)

	opts := calendar.ListOptions{
		Query:            strings.TrimSpace(where.Query),
		IncludeHolidays:  where.IncludeHolidays,
		IncludeBirthdays: where.IncludeBirthdays,
	}
	if hasFrom {
		opts.TimeMin = from.Add(-wherePadding)
	}
	if hasTo {
		opts.TimeMax = to.Add(wherePadding)
	}

	events, err := r.provider.ListEvents(ctx, sessionID, opts)
	if err != nil {
		return nil, err
	}

	if hasFrom || hasTo {
		events = clip(events, from, hasFrom, to, hasTo)
	}
	if where.Filters != nil {
		events = filter.Apply(events, *where.Filters)
	}
	return events, nil
}

// clip keeps the events whose span overlaps [from, to). An event without an
// end is treated as an instant at its start.
func clip(events []calendar.Event, from time.Time, hasFrom bool, to time.Time, hasTo bool) []calendar.Event {
	out := make([]calendar.Event, 0, len(events))
	for _, e := range events {
		start, ok := e.StartTime()
		if !ok {
			continue
		}
		end, ok := e.EndTime()
		if !ok {
			end = start
		}
		if hasTo && !start.Before(to) {
			continue
		}
		if hasFrom && end.Before(from) {
			continue
		}
		if hasFrom && end.Equal(from) && end.After(start) {
			continue
		}
		out = append(out, e)
	}
	return out
}
