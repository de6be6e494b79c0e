package calendar_tools

import (
	"context"
)

// listEvents lists the requested window and remembers the result so later
// calls can refer to it by index.
func (d *Dispatcher) listEvents(ctx context.Context, sessionID string, args listArgs) ([]Action, error) {
	events, err := d.resolver.ResolveWhere(ctx, sessionID, &args.Where)
	if err != nil {
		return nil, err
	}
	if err := d.resolver.Remember(ctx, sessionID, events); err != nil {
		return nil, err
	}
	return single(listAction(events)), nil
}
