package calendar_tools

import (
	"context"

	"github.com/teemow/calassist/internal/calendar"
)

func (d *Dispatcher) getEventDetail(ctx context.Context, sessionID string, args detailArgs) ([]Action, error) {
	e, act, err := d.lookupOne(ctx, sessionID, args.target)
	if err != nil || act != nil {
		return actionOrNil(act), err
	}
	return single(Action{Detail: viewOf(e)}), nil
}

func (d *Dispatcher) getEventDetailByIndex(ctx context.Context, sessionID string, args detailByIndexArgs) ([]Action, error) {
	e, act, err := d.lookupOne(ctx, sessionID, target{Index: args.Index})
	if err != nil || act != nil {
		return actionOrNil(act), err
	}
	return single(Action{Detail: viewOf(e)}), nil
}

// startEdit shows the event a following update_event call will change.
func (d *Dispatcher) startEdit(ctx context.Context, sessionID string, args detailArgs) ([]Action, error) {
	e, act, err := d.lookupOne(ctx, sessionID, args.target)
	if err != nil || act != nil {
		return actionOrNil(act), err
	}
	return single(Action{OK: okValue(true), Detail: viewOf(e)}), nil
}

// lookupOne resolves t to a single event and fetches its current record.
// Several matches yield a need_index action listing them.
func (d *Dispatcher) lookupOne(ctx context.Context, sessionID string, t target) (*calendar.Event, *Action, error) {
	cands, act, err := d.resolveTarget(ctx, sessionID, t.normalized())
	if err != nil || act != nil {
		return nil, act, err
	}
	if len(cands) > 1 {
		return nil, &Action{OK: okValue(false), NeedIndex: true, Candidates: candidateViews(cands)}, nil
	}
	e, act := d.fetch(ctx, sessionID, cands[0].Ref)
	if act != nil {
		return nil, act, nil
	}
	return e, nil, nil
}

func actionOrNil(a *Action) []Action {
	if a == nil {
		return nil
	}
	return single(*a)
}
