package calendar_tools

import (
	"context"
	"time"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/timeutil"
	"github.com/teemow/calassist/internal/tools/batch"
)

// updateEvent drafts or executes a patch.
//
// A confirmed call executes the stored draft when it names no target or the
// same event as the draft. Otherwise the target is resolved: several matches
// need an index unless apply_to_all is set, in which case every match is
// patched independently once confirmed.
func (d *Dispatcher) updateEvent(ctx context.Context, sessionID string, args updateArgs) ([]Action, error) {
	t := args.target.normalized()

	state, err := d.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pending := state.PendingUpdate
	usePending := args.Confirmed && pending != nil && !args.ApplyToAll
	if usePending && t.isEmpty() {
		return d.executeUpdate(ctx, sessionID, *pending, args.NotifyAttendees), nil
	}

	patch, act := parsePatch(args.Patch)
	if act != nil {
		return single(*act), nil
	}
	if t.isEmpty() {
		return single(Action{
			OK:      okValue(false),
			Error:   ErrInvalidArguments,
			Details: []string{"one of id, index or where is required"},
		}), nil
	}

	cands, act, err := d.resolveTarget(ctx, sessionID, t)
	if err != nil || act != nil {
		return actionOrNil(act), err
	}

	if usePending && len(cands) == 1 && cands[0].Ref == pending.Ref() {
		return d.executeUpdate(ctx, sessionID, *pending, args.NotifyAttendees), nil
	}

	if len(cands) > 1 {
		if !args.ApplyToAll {
			return single(Action{
				OK:           okValue(false),
				NeedIndex:    true,
				Candidates:   candidateViews(cands),
				PreviewPatch: &patch.body,
			}), nil
		}
		return d.updateAll(ctx, sessionID, cands, patch, args), nil
	}

	c := cands[0]
	before := c.Item
	if before == nil {
		// A failed lookup degrades to an id-only preview; the patch call
		// reports the provider error.
		before, _ = d.fetch(ctx, sessionID, c.Ref)
	}
	body := patch.resolve(before)
	draft := session.PendingUpdate{
		EventID:      c.Ref.EventID,
		CalendarID:   c.Ref.CalendarID,
		Patch:        body,
		Before:       before,
		NewAttendees: hasNewAttendees(before, body),
	}
	needNotify := draft.NewAttendees && args.NotifyAttendees == nil

	if !args.Confirmed {
		if err := d.storePending(ctx, sessionID, func(s *session.State) { s.PendingUpdate = &draft }); err != nil {
			return nil, err
		}
		return single(Action{
			OK:               okValue(false),
			NeedConfirm:      true,
			NeedNotifyChoice: needNotify,
			PreviewPatch:     &draft.Patch,
			Before:           viewOf(before),
		}), nil
	}

	if needNotify {
		if err := d.storePending(ctx, sessionID, func(s *session.State) { s.PendingUpdate = &draft }); err != nil {
			return nil, err
		}
		return single(notifyChoiceForUpdate(draft)), nil
	}

	return d.executeUpdate(ctx, sessionID, draft, args.NotifyAttendees), nil
}

// executeUpdate applies a draft and clears the pending update slot whatever
// the outcome.
func (d *Dispatcher) executeUpdate(ctx context.Context, sessionID string, draft session.PendingUpdate, notify *bool) []Action {
	if draft.NewAttendees && notify == nil {
		return single(notifyChoiceForUpdate(draft))
	}
	defer d.clearPending(ctx, sessionID, pendingUpdate)

	updated, err := d.provider.PatchEvent(ctx, sessionID, draft.CalendarID, draft.EventID, draft.Patch,
		sendUpdates(draft.NewAttendees, notify))
	if err != nil {
		return single(providerError(err))
	}
	d.refresh(ctx, sessionID)
	return single(Action{Updated: viewOf(updated)})
}

// updateAll previews or applies one patch to every candidate. Each item is
// patched independently; failures are collected per item.
func (d *Dispatcher) updateAll(ctx context.Context, sessionID string, cands []candidate, patch parsedPatch, args updateArgs) []Action {
	addsAttendees := false
	for _, c := range cands {
		if hasNewAttendees(c.Item, patch.resolve(c.Item)) {
			addsAttendees = true
			break
		}
	}
	if !args.Confirmed || (addsAttendees && args.NotifyAttendees == nil) {
		return single(Action{
			OK:               okValue(false),
			NeedConfirm:      !args.Confirmed,
			NeedNotifyChoice: addsAttendees && args.NotifyAttendees == nil,
			PreviewPatch:     &patch.body,
			PreviewItems:     candidateViews(cands),
		})
	}

	items := make(map[calendar.Ref]*calendar.Event, len(cands))
	for _, c := range cands {
		items[c.Ref] = c.Item
	}
	results := batch.ProcessBatch(candidateRefs(cands), func(ref calendar.Ref) (any, error) {
		before := items[ref]
		body := patch.resolve(before)
		updated, err := d.provider.PatchEvent(ctx, sessionID, ref.CalendarID, ref.EventID, body,
			sendUpdates(hasNewAttendees(before, body), args.NotifyAttendees))
		if err != nil {
			return nil, err
		}
		return updated.View(), nil
	})

	summary := batch.Summarize(results)
	if summary.Successful > 0 {
		d.refresh(ctx, sessionID)
	}
	return single(Action{OK: okValue(summary.OK()), Batch: &summary})
}

func notifyChoiceForUpdate(draft session.PendingUpdate) Action {
	return Action{
		OK:               okValue(false),
		NeedNotifyChoice: true,
		PendingUpdate: &PendingUpdateView{
			EventID:    draft.EventID,
			CalendarID: draft.CalendarID,
			Body:       draft.Patch,
		},
	}
}

// parsedPatch is a validated patch before the end-time adjustment, which
// depends on the event being patched.
type parsedPatch struct {
	body     calendar.Body
	start    time.Time
	hasStart bool
	hasEnd   bool
}

func parsePatch(p patchArgs) (parsedPatch, *Action) {
	var out parsedPatch
	b := &out.body

	if p.Attendees != nil {
		valid, invalid := p.Attendees.split()
		if len(invalid) > 0 {
			return out, &Action{OK: okValue(false), Error: ErrInvalidAttendees, Invalid: invalid}
		}
		b.Attendees = &valid
	}

	if p.Start != nil {
		start, ok := timeutil.Parse(*p.Start)
		if !ok {
			a := errorAction(ErrInvalidStart)
			return out, &a
		}
		st := calendar.At(start)
		b.Start = &st
		out.start = start
		out.hasStart = true
	}
	if p.End != nil {
		end, ok := timeutil.Parse(*p.End)
		switch {
		case ok && (!out.hasStart || end.After(out.start)):
			et := calendar.At(end)
			b.End = &et
			out.hasEnd = true
		case !ok && !out.hasStart:
			a := errorAction(ErrInvalidEnd)
			return out, &a
		}
	}

	b.Title = p.Title
	b.Description = p.Description
	b.Location = p.Location

	if b.IsEmpty() {
		return out, &Action{OK: okValue(false), Error: ErrInvalidArguments, Details: []string{"patch changes nothing"}}
	}
	return out, nil
}

// resolve returns the patch body for before. A new start without a usable
// new end keeps the current end when it is still after the start, and
// otherwise ends one hour after the start. All-day events always get a new
// end so start and end share a type.
func (p parsedPatch) resolve(before *calendar.Event) calendar.Body {
	body := p.body
	if !p.hasStart || p.hasEnd {
		return body
	}

	var current time.Time
	if before != nil && !before.End.AllDay() {
		if t, ok := before.EndTime(); ok {
			current = t
		}
	}
	end := timeutil.EnsureEnd(p.start, current)
	if !end.Equal(current) {
		et := calendar.At(end)
		body.End = &et
	}
	return body
}

// hasNewAttendees reports whether body invites someone who is not on
// before. Without a known prior record every attendee counts as new.
func hasNewAttendees(before *calendar.Event, body calendar.Body) bool {
	after := body.AttendeeList()
	if len(after) == 0 {
		return false
	}
	var prior []string
	if before != nil {
		prior = before.Attendees
	}
	return len(newlyAdded(prior, after)) > 0
}
