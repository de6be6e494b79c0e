package calendar_tools

import (
	"context"
	"strings"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/timeutil"
)

// createEvent drafts or executes an insert. A confirmed call with a stored
// draft executes the draft; otherwise the arguments are validated and
// either stored as a draft or, when confirmed, inserted directly.
func (d *Dispatcher) createEvent(ctx context.Context, sessionID string, args createArgs) ([]Action, error) {
	state, err := d.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if args.Confirmed && state.PendingCreate != nil {
		return d.executeCreate(ctx, sessionID, *state.PendingCreate, args.NotifyAttendees, true), nil
	}

	body, act := buildCreateBody(args)
	if act != nil {
		return single(*act), nil
	}
	pending := session.PendingCreate{
		CalendarID:   calendar.PrimaryCalendarID,
		Body:         body,
		HasAttendees: len(body.AttendeeList()) > 0,
	}
	needNotify := pending.HasAttendees && args.NotifyAttendees == nil

	if !args.Confirmed {
		if err := d.storePending(ctx, sessionID, func(s *session.State) { s.PendingCreate = &pending }); err != nil {
			return nil, err
		}
		return single(Action{
			OK:               okValue(false),
			NeedConfirm:      true,
			NeedNotifyChoice: needNotify,
			Preview:          &pending.Body,
		}), nil
	}

	if needNotify {
		if err := d.storePending(ctx, sessionID, func(s *session.State) { s.PendingCreate = &pending }); err != nil {
			return nil, err
		}
		return single(Action{OK: okValue(false), NeedNotifyChoice: true, PendingCreate: &pending.Body}), nil
	}

	return d.executeCreate(ctx, sessionID, pending, args.NotifyAttendees, false), nil
}

// executeCreate inserts a draft. When the draft came from the pending slot
// the slot is cleared whatever the outcome.
func (d *Dispatcher) executeCreate(ctx context.Context, sessionID string, pending session.PendingCreate, notify *bool, fromSlot bool) []Action {
	if pending.HasAttendees && notify == nil {
		return single(Action{OK: okValue(false), NeedNotifyChoice: true, PendingCreate: &pending.Body})
	}
	if fromSlot {
		defer d.clearPending(ctx, sessionID, pendingCreate)
	}

	created, err := d.provider.InsertEvent(ctx, sessionID, pending.CalendarID, pending.Body, sendUpdates(pending.HasAttendees, notify))
	if err != nil {
		return single(providerError(err))
	}
	d.refresh(ctx, sessionID)
	return single(Action{Created: viewOf(created)})
}

// buildCreateBody validates the arguments and builds the insert body. A
// missing end, or one not after the start, becomes start plus one hour.
func buildCreateBody(args createArgs) (calendar.Body, *Action) {
	var attendees []string
	if args.Attendees != nil {
		valid, invalid := args.Attendees.split()
		if len(invalid) > 0 {
			return calendar.Body{}, &Action{OK: okValue(false), Error: ErrInvalidAttendees, Invalid: invalid}
		}
		attendees = valid
	}

	start, ok := timeutil.Parse(args.Start)
	if !ok {
		a := errorAction(ErrInvalidStart)
		return calendar.Body{}, &a
	}
	end, _ := timeutil.Parse(args.End)
	end = timeutil.EnsureEnd(start, end)

	title := strings.TrimSpace(args.Title)
	if title == "" {
		title = calendar.UntitledPlaceholder
	}
	startTime := calendar.At(start)
	endTime := calendar.At(end)
	body := calendar.Body{
		Title: &title,
		Start: &startTime,
		End:   &endTime,
	}
	if args.Description != "" {
		body.Description = &args.Description
	}
	if args.Location != "" {
		body.Location = &args.Location
	}
	if args.Attendees != nil {
		body.Attendees = &attendees
	}
	return body, nil
}
