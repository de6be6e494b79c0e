package calendar_tools

import (
	"context"
	"slices"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools/batch"
)

// deleteEvent drafts or executes a deletion of one or more events.
//
// Targets may combine indexes, index, ids, id and where. A where filter
// matching several events needs an index unless apply_to_all is set. A
// confirmed call executes the stored draft when it names no target or the
// same targets as the draft.
func (d *Dispatcher) deleteEvent(ctx context.Context, sessionID string, args deleteArgs) ([]Action, error) {
	state, err := d.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pending := state.PendingDelete
	usePending := args.Confirmed && pending != nil && len(pending.Targets) > 0
	if usePending && !args.hasTargets() {
		return d.executeDelete(ctx, sessionID, *pending, true), nil
	}

	cands, act, err := d.deleteTargets(ctx, sessionID, args)
	if err != nil || act != nil {
		return actionOrNil(act), err
	}

	draft := session.PendingDelete{Targets: candidateRefs(cands)}
	for _, c := range cands {
		if c.Item != nil {
			draft.Items = append(draft.Items, *c.Item)
		}
	}

	if usePending && slices.Equal(draft.Targets, pending.Targets) {
		return d.executeDelete(ctx, sessionID, *pending, true), nil
	}

	if !args.Confirmed {
		if err := d.storePending(ctx, sessionID, func(s *session.State) { s.PendingDelete = &draft }); err != nil {
			return nil, err
		}
		return single(Action{
			OK:            okValue(false),
			NeedConfirm:   true,
			PreviewDelete: draft.Targets,
			PreviewItems:  views(draft.Items),
		}), nil
	}

	return d.executeDelete(ctx, sessionID, draft, pending != nil), nil
}

// deleteTargets collects the referenced events without duplicates, in the
// order indexes, ids, where.
func (d *Dispatcher) deleteTargets(ctx context.Context, sessionID string, args deleteArgs) ([]candidate, *Action, error) {
	t := args.target.normalized()

	indexes := slices.Clone(args.Indexes)
	var ids []string
	for _, raw := range append(slices.Clone(args.IDs), t.ID) {
		n := target{ID: raw}.normalized()
		switch {
		case n.Index > 0:
			indexes = append(indexes, n.Index)
		case n.ID != "":
			ids = append(ids, string(n.ID))
		}
	}
	if t.Index > 0 {
		indexes = append(indexes, t.Index)
	}

	var out []candidate
	seen := make(map[calendar.Ref]bool)
	add := func(c candidate) {
		if !seen[c.Ref] {
			seen[c.Ref] = true
			out = append(out, c)
		}
	}

	for _, idx := range indexes {
		cands, act, err := d.resolveTarget(ctx, sessionID, target{Index: idx})
		if err != nil || act != nil {
			return nil, act, err
		}
		add(cands[0])
	}
	for _, id := range ids {
		ref, err := d.refForID(ctx, sessionID, id)
		if err != nil {
			return nil, nil, err
		}
		add(d.candidateFor(ctx, sessionID, ref))
	}
	if t.Where != nil {
		cands, act, err := d.resolveTarget(ctx, sessionID, target{Where: t.Where})
		if err != nil || act != nil {
			return nil, act, err
		}
		if len(cands) > 1 && !args.ApplyToAll {
			return nil, &Action{OK: okValue(false), NeedIndex: true, Candidates: candidateViews(cands)}, nil
		}
		for _, c := range cands {
			add(c)
		}
	}

	if len(out) == 0 {
		a := errorAction(ErrNotFound)
		return nil, &a, nil
	}
	return out, nil, nil
}

// executeDelete deletes every target. A single target reports a deleted
// action; several targets are processed independently and reported as a
// batch. The pending delete slot is cleared whatever the outcome when
// clearSlot is set.
func (d *Dispatcher) executeDelete(ctx context.Context, sessionID string, draft session.PendingDelete, clearSlot bool) []Action {
	if clearSlot {
		defer d.clearPending(ctx, sessionID, pendingDelete)
	}

	display := func(ref calendar.Ref) calendar.View {
		for _, e := range draft.Items {
			if e.Ref() == ref {
				return e.View()
			}
		}
		return candidate{Ref: ref}.view()
	}

	if len(draft.Targets) == 1 {
		ref := draft.Targets[0]
		if err := d.provider.DeleteEvent(ctx, sessionID, ref.CalendarID, ref.EventID); err != nil {
			return single(providerError(err))
		}
		d.refresh(ctx, sessionID)
		v := display(ref)
		return single(Action{Deleted: &v})
	}

	results := batch.ProcessBatch(draft.Targets, func(ref calendar.Ref) (any, error) {
		if err := d.provider.DeleteEvent(ctx, sessionID, ref.CalendarID, ref.EventID); err != nil {
			return nil, err
		}
		return display(ref), nil
	})
	summary := batch.Summarize(results)
	if summary.Successful > 0 {
		d.refresh(ctx, sessionID)
	}
	return single(Action{OK: okValue(summary.OK()), Batch: &summary})
}
