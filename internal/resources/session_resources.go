package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/session"
)

// Resource URI templates.
const (
	SessionListingTemplate = "session://{session_id}/listing"
	SessionPendingTemplate   = "session://{session_id}/pending"
	SessionCalendarsTemplate = "session://{session_id}/calendars"
)

// CalendarLister lists the calendars visible to a session's credential.
// *calendar.Client satisfies it.
type CalendarLister interface {
	ListCalendars(ctx context.Context, sessionID string) ([]calendar.CalendarInfo, error)
}

const uriScheme = "session://"

// RegisterSessionResources registers the per-session resources. The
// calendars resource is only registered when calendars is not nil.
func RegisterSessionResources(s *mcpserver.MCPServer, store session.Store, calendars CalendarLister) error {
	if store == nil {
		return fmt.Errorf("session store is required")
	}

	listing := mcp.NewResourceTemplate(
		SessionListingTemplate,
		"Last Event Listing",
		mcp.WithTemplateDescription("Events of the session's most recent listing in display order. Index n in calendar tools refers to entry n."),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(listing, listingHandler(store))

	pending := mcp.NewResourceTemplate(
		SessionPendingTemplate,
		"Staged Changes",
		mcp.WithTemplateDescription("Create, update and delete operations staged in the session and awaiting confirmation"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(pending, pendingHandler(store))

	if calendars != nil {
		cals := mcp.NewResourceTemplate(
			SessionCalendarsTemplate,
			"Calendars",
			mcp.WithTemplateDescription("Calendars searched by list_events for the session's Google account"),
			mcp.WithTemplateMIMEType("application/json"),
		)
		s.AddResourceTemplate(cals, calendarsHandler(calendars))
	}

	return nil
}

type listingResource struct {
	SessionID string          `json:"session_id"`
	Events    []calendar.View `json:"events"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type pendingResource struct {
	SessionID string                 `json:"session_id"`
	Create    *session.PendingCreate `json:"create,omitempty"`
	Update    *session.PendingUpdate `json:"update,omitempty"`
	Delete    *session.PendingDelete `json:"delete,omitempty"`
}

type calendarsResource struct {
	SessionID string                  `json:"session_id"`
	Calendars []calendar.CalendarInfo `json:"calendars"`
}

func listingHandler(store session.Store) mcpserver.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sessionID, err := sessionIDFromURI(request.Params.URI, "listing")
		if err != nil {
			return nil, err
		}
		state, err := session.Load(ctx, store, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		out := listingResource{SessionID: sessionID, Events: make([]calendar.View, 0, len(state.Snapshot))}
		for i, ev := range state.Snapshot {
			view := ev.View()
			view.Idx = i + 1
			out.Events = append(out.Events, view)
		}
		if !state.UpdatedAt.IsZero() {
			out.UpdatedAt = &state.UpdatedAt
		}
		return jsonContents(request.Params.URI, out)
	}
}

func pendingHandler(store session.Store) mcpserver.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sessionID, err := sessionIDFromURI(request.Params.URI, "pending")
		if err != nil {
			return nil, err
		}
		state, err := session.Load(ctx, store, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		return jsonContents(request.Params.URI, pendingResource{
			SessionID: sessionID,
			Create:    state.PendingCreate,
			Update:    state.PendingUpdate,
			Delete:    state.PendingDelete,
		})
	}
}

func calendarsHandler(calendars CalendarLister) mcpserver.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sessionID, err := sessionIDFromURI(request.Params.URI, "calendars")
		if err != nil {
			return nil, err
		}
		list, err := calendars.ListCalendars(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list calendars: %w", err)
		}
		if list == nil {
			list = []calendar.CalendarInfo{}
		}
		return jsonContents(request.Params.URI, calendarsResource{SessionID: sessionID, Calendars: list})
	}
}

// sessionIDFromURI extracts the session id from session://{id}/{kind}.
func sessionIDFromURI(uri, kind string) (string, error) {
	rest, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return "", fmt.Errorf("unsupported resource URI: %s", uri)
	}
	id, ok := strings.CutSuffix(rest, "/"+kind)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("unsupported resource URI: %s", uri)
	}
	return id, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
