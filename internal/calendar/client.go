package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/timeutil"
)

// DefaultRequestTimeout bounds every provider HTTP call.
const DefaultRequestTimeout = 25 * time.Second

// maxResultsPerPage is the largest page size the Events.list endpoint accepts.
const maxResultsPerPage = 2500

// eventTypesWithoutBirthdays lists every event type except "birthday".
var eventTypesWithoutBirthdays = []string{
	"default",
	"fromGmail",
	"outOfOffice",
	"workingLocation",
	"focusTime",
}

// ServiceFactory returns an authenticated Calendar service for a session.
type ServiceFactory func(ctx context.Context, sessionID string) (*calendar.Service, error)

// NewServiceFactory builds services whose HTTP client carries the session's
// OAuth token. Tokens are refreshed through conf when they expire.
func NewServiceFactory(tokens google.TokenProvider, conf *oauth2.Config, timeout time.Duration) ServiceFactory {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(ctx context.Context, sessionID string) (*calendar.Service, error) {
		if tokens == nil {
			return nil, fmt.Errorf("token provider cannot be nil")
		}

		token, err := tokens.GetTokenForAccount(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get Google OAuth token for session: %w", err)
		}

		// The service outlives this request's context, so the token source
		// must not be bound to it.
		client := oauth2.NewClient(context.Background(), conf.TokenSource(context.Background(), token))

		// Force HTTP/1.1 by disabling HTTP/2
		if transport, ok := client.Transport.(*oauth2.Transport); ok {
			transport.Base = &http.Transport{
				ForceAttemptHTTP2: false,
				Proxy:             http.ProxyFromEnvironment,
			}
		}
		client.Timeout = timeout

		svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("failed to create Calendar service: %w", err)
		}
		return svc, nil
	}
}

// Client implements Provider on top of the Google Calendar v3 API.
type Client struct {
	services ServiceFactory
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records provider calls on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger used for skipped calendars and retries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the clock used to compute the default window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a provider that obtains per-session services from services.
func NewClient(services ServiceFactory, opts ...Option) *Client {
	c := &Client{
		services: services,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Provider = (*Client)(nil)

func (c *Client) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordCalendarOperation(ctx, operation, status, time.Since(start))
}

// ListCalendars returns the calendars the user has selected in the provider
// UI, or every calendar when none is marked selected.
func (c *Client) ListCalendars(ctx context.Context, sessionID string) (_ []CalendarInfo, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, instrumentation.OperationCalendarList, start, err) }()

	svc, err := c.services(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.listCalendars(ctx, svc)
}

func (c *Client) listCalendars(ctx context.Context, svc *calendar.Service) ([]CalendarInfo, error) {
	var all, selected []CalendarInfo
	err := svc.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, entry := range page.Items {
			info := toCalendarInfo(entry)
			all = append(all, info)
			if info.Selected {
				selected = append(selected, info)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", wrapNotFound(err))
	}
	if len(selected) > 0 {
		return selected, nil
	}
	return all, nil
}

// ListEvents lists occurrences across every visible calendar within the
// window, skipping holiday and birthday calendars unless requested.
// A calendar that fails to list is logged and skipped.
func (c *Client) ListEvents(ctx context.Context, sessionID string, opts ListOptions) (_ []Event, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, instrumentation.OperationList, start, err) }()

	ctx, span := instrumentation.StartClientSpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList)
	defer span.End()

	svc, err := c.services(ctx, sessionID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	if opts.TimeMin.IsZero() && opts.TimeMax.IsZero() {
		opts.TimeMin, opts.TimeMax = timeutil.DefaultWindow(c.now())
	}

	calendars, err := c.listCalendars(ctx, svc)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	var events []Event
	for _, cal := range calendars {
		if cal.Kind == KindHoliday && !opts.IncludeHolidays {
			continue
		}
		if cal.Kind == KindBirthday && !opts.IncludeBirthdays {
			continue
		}
		items, err := c.listCalendarEvents(ctx, svc, cal.ID, opts)
		if err != nil {
			c.logger.Warn("skipping calendar that failed to list",
				logging.Session(sessionID),
				logging.Calendar(cal.ID),
				logging.Err(err))
			continue
		}
		events = append(events, items...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return startKey(events[i]).Before(startKey(events[j]))
	})
	instrumentation.SetSpanSuccess(span)
	return events, nil
}

func startKey(e Event) time.Time {
	t, _ := e.StartTime()
	return t
}

func (c *Client) listCalendarEvents(ctx context.Context, svc *calendar.Service, calendarID string, opts ListOptions) ([]Event, error) {
	call := svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResultsPerPage)

	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(timeutil.Format(opts.TimeMin))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(timeutil.Format(opts.TimeMax))
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if !opts.IncludeBirthdays {
		call = call.EventTypes(eventTypesWithoutBirthdays...)
	}

	var events []Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if !opts.IncludeBirthdays && item.EventType == "birthday" {
				continue
			}
			events = append(events, toEvent(item, calendarID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", wrapNotFound(err))
	}
	return events, nil
}

// GetEvent retrieves a specific event by ID
func (c *Client) GetEvent(ctx context.Context, sessionID, calendarID, eventID string) (_ *Event, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, instrumentation.OperationGet, start, err) }()

	svc, err := c.services(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	calendarID = calendarOrPrimary(calendarID)
	item, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", wrapNotFound(err))
	}
	ev := toEvent(item, calendarID)
	return &ev, nil
}

// InsertEvent creates a new calendar event
func (c *Client) InsertEvent(ctx context.Context, sessionID, calendarID string, body Body, send SendUpdates) (_ *Event, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, instrumentation.OperationInsert, start, err) }()

	ctx, span := instrumentation.StartClientSpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert)
	defer span.End()

	svc, err := c.services(ctx, sessionID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	payload := toGoogleEvent(body)
	if payload.Summary == "" {
		payload.Summary = UntitledPlaceholder
		payload.NullFields = nil
	}
	// An empty attendee list is simply omitted on insert.
	if len(payload.Attendees) == 0 {
		payload.Attendees = nil
		payload.ForceSendFields = nil
	}

	calendarID = calendarOrPrimary(calendarID)
	call := svc.Events.Insert(calendarID, payload).Context(ctx)
	if send != SendUpdatesDefault {
		call = call.SendUpdates(string(send))
	}

	created, err := call.Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to create event: %w", wrapNotFound(err))
	}
	instrumentation.SetSpanSuccess(span)
	ev := toEvent(created, calendarID)
	return &ev, nil
}

// PatchEvent applies body to an existing event. When the event is not found
// on calendarID, every visible calendar is checked and the patch is retried on
// the calendar that actually owns the event.
func (c *Client) PatchEvent(ctx context.Context, sessionID, calendarID, eventID string, body Body, send SendUpdates) (_ *Event, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, instrumentation.OperationPatch, start, err) }()

	ctx, span := instrumentation.StartClientSpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationPatch,
		instrumentation.NewSpanAttributeBuilder().WithEvent(calendarID, eventID).Build()...)
	defer span.End()

	svc, err := c.services(ctx, sessionID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	calendarID = calendarOrPrimary(calendarID)
	updated, err := c.patch(ctx, svc, calendarID, eventID, body, send)
	if err == nil {
		instrumentation.SetSpanSuccess(span)
		return updated, nil
	}
	if !errors.Is(err, ErrNotFound) {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	c.logger.Warn("patch target not found, probing other calendars",
		logging.Session(sessionID),
		logging.Calendar(calendarID))

	calendars, listErr := c.listCalendars(ctx, svc)
	if listErr != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	for _, cal := range calendars {
		if cal.ID == calendarID {
			continue
		}
		if _, getErr := svc.Events.Get(cal.ID, eventID).Context(ctx).Do(); getErr != nil {
			continue
		}
		updated, retryErr := c.patch(ctx, svc, cal.ID, eventID, body, send)
		if retryErr != nil {
			instrumentation.SetSpanError(span, retryErr)
			return nil, retryErr
		}
		instrumentation.AddSpanEvent(span, "owner_calendar_found")
		instrumentation.SetSpanSuccess(span)
		return updated, nil
	}

	instrumentation.SetSpanError(span, err)
	return nil, err
}

func (c *Client) patch(ctx context.Context, svc *calendar.Service, calendarID, eventID string, body Body, send SendUpdates) (*Event, error) {
	call := svc.Events.Patch(calendarID, eventID, toGoogleEvent(body)).Context(ctx)
	if send != SendUpdatesDefault {
		call = call.SendUpdates(string(send))
	}
	updated, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", wrapNotFound(err))
	}
	ev := toEvent(updated, calendarID)
	return &ev, nil
}

// DeleteEvent deletes a calendar event
func (c *Client) DeleteEvent(ctx context.Context, sessionID, calendarID, eventID string) (err error) {
	start := time.Now()
	defer func() { c.observe(ctx, instrumentation.OperationDelete, start, err) }()

	ctx, span := instrumentation.StartClientSpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationDelete,
		instrumentation.NewSpanAttributeBuilder().WithEvent(calendarID, eventID).Build()...)
	defer span.End()

	svc, err := c.services(ctx, sessionID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return err
	}

	if err := svc.Events.Delete(calendarOrPrimary(calendarID), eventID).Context(ctx).Do(); err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("failed to delete event: %w", wrapNotFound(err))
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

// notFoundError keeps the provider message while matching ErrNotFound.
type notFoundError struct{ err error }

func (e notFoundError) Error() string   { return e.err.Error() }
func (e notFoundError) Unwrap() []error { return []error{ErrNotFound, e.err} }

// wrapNotFound marks provider 404 and 410 responses so callers can use
// errors.Is(err, ErrNotFound).
func wrapNotFound(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return notFoundError{err: err}
	}
	return err
}
