package calendar_tools

import (
	"context"
	"errors"
	"strconv"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/session"
)

// maxIndexDigits bounds the digit-only ids that are read as list indexes.
// Provider ids are much longer.
const maxIndexDigits = 5

// candidate is a resolved event. Item is the full record when it is known
// without another provider call.
type candidate struct {
	Ref  calendar.Ref
	Item *calendar.Event
}

func (c candidate) view() calendar.View {
	if c.Item != nil {
		return c.Item.View()
	}
	return calendar.View{ID: c.Ref.EventID, CalendarID: c.Ref.CalendarID, Attendees: []string{}}
}

func candidateViews(cands []candidate) []calendar.View {
	out := make([]calendar.View, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.view())
	}
	return out
}

func candidateRefs(cands []candidate) []calendar.Ref {
	out := make([]calendar.Ref, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Ref)
	}
	return out
}

// normalized reads a short digit-only id as a 1-based index.
func (t target) normalized() target {
	if t.Index == 0 && isIndexLike(string(t.ID)) {
		n, err := strconv.Atoi(string(t.ID))
		if err == nil && n > 0 {
			t.Index = n
			t.ID = ""
		}
	}
	return t
}

func isIndexLike(s string) bool {
	if s == "" || len(s) > maxIndexDigits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveTarget turns an index, id or where filter into candidates, in that
// order of precedence. A non-nil action reports a lookup failure to the
// caller. A where filter may yield several candidates; index and id yield
// exactly one.
func (d *Dispatcher) resolveTarget(ctx context.Context, sessionID string, t target) ([]candidate, *Action, error) {
	switch {
	case t.Index > 0:
		ref, err := d.resolver.MapIndexToPair(ctx, sessionID, t.Index)
		if errors.Is(err, session.ErrIndexOutOfRange) {
			a := errorAction(ErrIndexOutOfRange)
			return nil, &a, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return []candidate{d.candidateFor(ctx, sessionID, ref)}, nil, nil

	case t.ID != "":
		ref, err := d.refForID(ctx, sessionID, string(t.ID))
		if err != nil {
			return nil, nil, err
		}
		return []candidate{d.candidateFor(ctx, sessionID, ref)}, nil, nil

	case t.Where != nil:
		events, err := d.resolver.ResolveWhere(ctx, sessionID, t.Where)
		if err != nil {
			return nil, nil, err
		}
		if len(events) == 0 {
			a := errorAction(ErrNotFound)
			return nil, &a, nil
		}
		out := make([]candidate, len(events))
		for i := range events {
			e := events[i]
			out[i] = candidate{Ref: e.Ref(), Item: &e}
		}
		return out, nil, nil
	}

	a := errorAction(ErrNotFound)
	return nil, &a, nil
}

// refForID finds the owning calendar of eventID. Ids that are not in the
// default window fall back to the primary calendar; the provider reports
// them as missing if they do not exist there either.
func (d *Dispatcher) refForID(ctx context.Context, sessionID, eventID string) (calendar.Ref, error) {
	calID, err := d.resolver.FindCalendarForID(ctx, sessionID, eventID)
	if errors.Is(err, calendar.ErrNotFound) {
		return calendar.Ref{EventID: eventID, CalendarID: calendar.PrimaryCalendarID}, nil
	}
	if err != nil {
		return calendar.Ref{}, err
	}
	return calendar.Ref{EventID: eventID, CalendarID: calID}, nil
}

func (d *Dispatcher) candidateFor(ctx context.Context, sessionID string, ref calendar.Ref) candidate {
	item, _ := d.resolver.FindSnapshotItem(ctx, sessionID, ref.EventID, ref.CalendarID)
	return candidate{Ref: ref, Item: item}
}

// fetch returns the current record of ref from the provider. Provider
// errors, including not found, are reported as a not_found action.
func (d *Dispatcher) fetch(ctx context.Context, sessionID string, ref calendar.Ref) (*calendar.Event, *Action) {
	e, err := d.provider.GetEvent(ctx, sessionID, ref.CalendarID, ref.EventID)
	if err != nil {
		d.logger.Debug("event lookup failed", logging.Calendar(ref.CalendarID), logging.Err(err))
		a := errorAction(ErrNotFound)
		return nil, &a
	}
	return e, nil
}
