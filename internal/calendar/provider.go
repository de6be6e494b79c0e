package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the provider reports the event or calendar
// does not exist.
var ErrNotFound = errors.New("calendar: not found")

// ListOptions narrows a multi-calendar listing. A zero TimeMin and TimeMax
// select the default window.
type ListOptions struct {
	TimeMin          time.Time
	TimeMax          time.Time
	Query            string
	IncludeHolidays  bool
	IncludeBirthdays bool
}

// Provider is the calendar backend used by the tool handlers. Every call
// is authorized with the credential bound to sessionID.
type Provider interface {
	// ListEvents returns expanded occurrences from every visible calendar,
	// ordered by start time.
	ListEvents(ctx context.Context, sessionID string, opts ListOptions) ([]Event, error)
	GetEvent(ctx context.Context, sessionID, calendarID, eventID string) (*Event, error)
	InsertEvent(ctx context.Context, sessionID, calendarID string, body Body, send SendUpdates) (*Event, error)
	PatchEvent(ctx context.Context, sessionID, calendarID, eventID string, body Body, send SendUpdates) (*Event, error)
	DeleteEvent(ctx context.Context, sessionID, calendarID, eventID string) error
}
