package calendar_tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools/common"
)

// Dispatcher routes tool calls to their handlers. It validates the raw
// arguments against the tool schema, decodes them into typed structs and
// records every call for metrics and audit.
//
// Dispatch does not serialize calls for a session; callers that may run
// concurrent turns for one session hold a session.Locker around it.
type Dispatcher struct {
	provider calendar.Provider
	store    session.Store
	resolver *session.Resolver
	inst     common.Instrumentation
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInstrumentation sets the metrics and audit sinks.
func WithInstrumentation(inst common.Instrumentation) Option {
	return func(d *Dispatcher) {
		d.inst = inst
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a dispatcher over provider and store.
func NewDispatcher(provider calendar.Provider, store session.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider: provider,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.resolver = session.NewResolver(store, provider, d.logger)
	return d
}

// Specs returns the registered tools.
func (d *Dispatcher) Specs() []ToolSpec {
	return Specs()
}

// Resolver returns the session resolver used by the handlers.
func (d *Dispatcher) Resolver() *session.Resolver {
	return d.resolver
}

type handlerFunc func(d *Dispatcher, ctx context.Context, sessionID string, raw []byte) ([]Action, error)

// bind decodes the raw arguments into T before calling fn.
func bind[T any](fn func(*Dispatcher, context.Context, string, T) ([]Action, error)) handlerFunc {
	return func(d *Dispatcher, ctx context.Context, sessionID string, raw []byte) ([]Action, error) {
		var args T
		if err := json.Unmarshal(raw, &args); err != nil {
			return single(Action{
				OK:      okValue(false),
				Error:   ErrInvalidArguments,
				Details: []string{err.Error()},
			}), nil
		}
		return fn(d, ctx, sessionID, args)
	}
}

func lookupHandler(name string) (handlerFunc, bool) {
	switch name {
	case ToolListEvents:
		return bind((*Dispatcher).listEvents), true
	case ToolCreateEvent:
		return bind((*Dispatcher).createEvent), true
	case ToolUpdateEvent:
		return bind((*Dispatcher).updateEvent), true
	case ToolDeleteEvent:
		return bind((*Dispatcher).deleteEvent), true
	case ToolGetEventDetail:
		return bind((*Dispatcher).getEventDetail), true
	case ToolGetEventDetailByIndex:
		return bind((*Dispatcher).getEventDetailByIndex), true
	case ToolStartEdit:
		return bind((*Dispatcher).startEdit), true
	}
	return nil, false
}

func lookupSpec(name string) (ToolSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return ToolSpec{}, false
}

// Dispatch runs one tool call. sessionID overrides any session_id found in
// args; when it is empty the value from args is used. Domain failures and
// handler errors are reported as actions, never as a Go error.
func (d *Dispatcher) Dispatch(ctx context.Context, name, sessionID string, args json.RawMessage) (result Result) {
	spec, known := lookupSpec(name)

	raw, argSession, err := normalizeArgs(args, sessionID)
	if sessionID == "" {
		sessionID = argSession
	}

	ctx, inv := common.StartInvocation(ctx, d.inst, name, sessionID, spec.Mutating)
	var handlerErr error
	defer func() {
		inv.Finish(result.Outcome(), result.Failed(), handlerErr)
	}()
	defer func() {
		if r := recover(); r != nil {
			handlerErr = fmt.Errorf("tool %s panicked: %v", name, r)
			d.logger.Error("tool call panicked", logging.Tool(name), logging.Session(sessionID), logging.Err(handlerErr))
			result = Result{Actions: single(providerError(handlerErr))}
		}
	}()

	logger := d.logger.With(logging.Tool(name), logging.Session(sessionID))

	if !known {
		logger.Warn("unknown tool requested")
		return Result{Actions: single(Action{OK: okValue(false), Error: ErrUnknownTool, Details: []string{name}})}
	}
	if err != nil {
		return Result{Actions: single(Action{OK: okValue(false), Error: ErrInvalidArguments, Details: []string{err.Error()}})}
	}

	details, err := argsValidator.validate(name, raw)
	if err != nil {
		handlerErr = err
		logger.Error("argument validation unavailable", logging.Err(err))
		return Result{Actions: single(Action{OK: okValue(false), Error: err.Error()})}
	}
	if len(details) > 0 {
		logger.Debug("rejected tool arguments", slog.Any("details", details))
		return Result{Actions: single(Action{OK: okValue(false), Error: ErrInvalidArguments, Details: details})}
	}

	handler, _ := lookupHandler(name)
	actions, err := handler(d, ctx, sessionID, raw)
	if err != nil {
		handlerErr = err
		logger.Warn("tool call failed", logging.Err(err))
		return Result{Actions: single(providerError(err))}
	}
	if actions == nil {
		actions = []Action{}
	}
	return Result{Actions: actions}
}

// normalizeArgs turns args into a JSON object without null members and with
// session_id set. Missing or non-object arguments become an empty object.
func normalizeArgs(args json.RawMessage, sessionID string) ([]byte, string, error) {
	obj := map[string]any{}
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, "", fmt.Errorf("arguments are not valid JSON: %w", err)
		}
	}
	dropNulls(obj)

	if sessionID != "" {
		obj["session_id"] = sessionID
	} else if s, ok := obj["session_id"].(string); ok {
		sessionID = s
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode arguments: %w", err)
	}
	return raw, sessionID, nil
}

// dropNulls removes null members from objects at any depth so optional
// fields sent as null are treated as absent.
func dropNulls(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				delete(t, k)
				continue
			}
			dropNulls(child)
		}
	case []any:
		for _, child := range t {
			dropNulls(child)
		}
	}
}

func (d *Dispatcher) load(ctx context.Context, sessionID string) (*session.State, error) {
	return session.Load(ctx, d.store, sessionID)
}

func (d *Dispatcher) save(ctx context.Context, sessionID string, state *session.State) error {
	state.UpdatedAt = d.now()
	return d.store.Save(ctx, sessionID, state)
}

// storePending reloads the session state, applies set and saves it. The
// reload keeps any list written by a refresh during target resolution.
func (d *Dispatcher) storePending(ctx context.Context, sessionID string, set func(*session.State)) error {
	state, err := d.load(ctx, sessionID)
	if err != nil {
		return err
	}
	set(state)
	return d.save(ctx, sessionID, state)
}

type pendingKind int

const (
	pendingCreate pendingKind = iota
	pendingUpdate
	pendingDelete
)

// clearPending empties one pending slot. It is deferred around every
// execution step so the slot is cleared on all exit paths.
func (d *Dispatcher) clearPending(ctx context.Context, sessionID string, kind pendingKind) {
	err := d.storePending(context.WithoutCancel(ctx), sessionID, func(state *session.State) {
		switch kind {
		case pendingCreate:
			state.PendingCreate = nil
		case pendingUpdate:
			state.PendingUpdate = nil
		case pendingDelete:
			state.PendingDelete = nil
		}
	})
	if err != nil {
		d.logger.Warn("failed to clear pending mutation", logging.Session(sessionID), logging.Err(err))
	}
}

// refresh re-lists the default window after a successful mutation. A failed
// refresh leaves the cache stale and is only logged.
func (d *Dispatcher) refresh(ctx context.Context, sessionID string) {
	if _, err := d.resolver.Refresh(ctx, sessionID); err != nil {
		d.logger.Warn("failed to refresh session cache", logging.Session(sessionID), logging.Err(err))
	}
}

// sendUpdates maps the notification choice to the provider flag. Without
// attendees the provider default applies.
func sendUpdates(hasAttendees bool, notify *bool) calendar.SendUpdates {
	if !hasAttendees {
		return calendar.SendUpdatesDefault
	}
	if notify != nil && *notify {
		return calendar.SendUpdatesAll
	}
	return calendar.SendUpdatesNone
}
