package calendar_tools

import (
	"encoding/json"
)

// Tool names.
const (
	ToolListEvents            = "list_events"
	ToolCreateEvent           = "create_event"
	ToolUpdateEvent           = "update_event"
	ToolDeleteEvent           = "delete_event"
	ToolGetEventDetail        = "get_event_detail"
	ToolGetEventDetailByIndex = "get_event_detail_by_index"
	ToolStartEdit             = "start_edit"
)

// ToolSpec describes a tool for the language model and MCP clients.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the argument object.
	Parameters json.RawMessage
	// Mutating is true for tools that change calendar data.
	Mutating bool
}

// Specs returns the tool registry in a stable order.
func Specs() []ToolSpec {
	out := make([]ToolSpec, len(specs))
	copy(out, specs)
	return out
}

var specs = []ToolSpec{
	{
		Name: ToolListEvents,
		Description: "List the user's events. Interpret natural language into a time window and filters.\n" +
			"- from/to are ISO 8601 strings in KST (+09:00). Without them the window is today through the end of the year.\n" +
			"- Holiday and birthday calendars are excluded unless requested.\n" +
			"- Use filters for title, description, location, attendees, all-day, status, duration and end time.\n" +
			"- Results are numbered; later calls may refer to them by index.",
		Parameters: mustSchema(object(map[string]any{
			"from":              dateTime("Window start, e.g. 2025-08-25T00:00:00+09:00"),
			"to":                dateTime("Window end, e.g. 2025-08-25T23:59:59+09:00"),
			"query":             str("Free-text provider search"),
			"include_holidays":  boolean("Include holiday calendars"),
			"include_birthdays": boolean("Include birthday calendars"),
			"filters":           filtersSchema(),
			"session_id":        str(""),
		}, nil)),
	},
	{
		Name: ToolCreateEvent,
		Description: "Create a Google Calendar event.\n" +
			"- Times are KST. A missing end, or one not after the start, becomes start + 1 hour.\n" +
			"- If attendees are given and notify_attendees is not set, ask whether to send invitations.\n" +
			"- Only creates when confirmed=true; otherwise returns a preview to confirm once.",
		Parameters: mustSchema(object(map[string]any{
			"title":            str("Event title"),
			"start":            dateTime("Start time, e.g. 2025-08-25T13:00:00+09:00"),
			"end":              dateTime("End time"),
			"description":      str(""),
			"location":         str(""),
			"attendees":        attendeesSchema(),
			"notify_attendees": boolean("true sends invitation mail to attendees, false sends none"),
			"confirmed":        boolean("Set to true to execute after the user confirmed the preview"),
			"session_id":       str(""),
		}, []string{"title", "start"})),
		Mutating: true,
	},
	{
		Name: ToolUpdateEvent,
		Description: "Update a Google Calendar event chosen by id, index or where filter.\n" +
			"- If only the start changes and the end would not be after it, the end becomes start + 1 hour.\n" +
			"- If new attendees are added and notify_attendees is not set, ask whether to send invitations.\n" +
			"- If several events match, ask the user to pick a number, or use apply_to_all=true to update all.\n" +
			"- Only updates when confirmed=true; otherwise returns a preview to confirm once.",
		Parameters: mustSchema(object(map[string]any{
			"id":           eventIDSchema(),
			"index":        index(),
			"where":        whereSchema(),
			"apply_to_all": boolean("Apply the patch to every event matched by where"),
			"patch": object(map[string]any{
				"title":       str(""),
				"start":       dateTime(""),
				"end":         dateTime(""),
				"description": str(""),
				"location":    str(""),
				"attendees":   attendeesSchema(),
			}, nil),
			"notify_attendees": boolean("true sends invitation mail to new attendees, false sends none"),
			"confirmed":        boolean("Set to true to execute after the user confirmed the preview"),
			"session_id":       str(""),
		}, []string{"patch"})),
		Mutating: true,
	},
	{
		Name: ToolDeleteEvent,
		Description: "Delete events chosen by indexes, index, ids, id or a where filter.\n" +
			"- If where matches several events, ask the user to pick a number, or use apply_to_all=true to delete all.\n" +
			"- Only deletes when confirmed=true; otherwise returns a preview to confirm once.",
		Parameters: mustSchema(object(map[string]any{
			"id":           eventIDSchema(),
			"ids":          map[string]any{"type": "array", "items": eventIDSchema()},
			"index":        index(),
			"indexes":      map[string]any{"type": "array", "items": index()},
			"where":        whereSchema(),
			"apply_to_all": boolean("Delete every event matched by where"),
			"confirmed":    boolean("Set to true to execute after the user confirmed the preview"),
			"session_id":   str(""),
		}, nil)),
		Mutating: true,
	},
	{
		Name:        ToolGetEventDetail,
		Description: "Show event details, including attendees, chosen by id, index or where filter. If several match, ask the user to pick a number.",
		Parameters: mustSchema(object(map[string]any{
			"id":         eventIDSchema(),
			"index":      index(),
			"where":      whereSchema(),
			"session_id": str(""),
		}, nil)),
	},
	{
		Name:        ToolGetEventDetailByIndex,
		Description: "Show details of the event at a 1-based index of the last list.",
		Parameters: mustSchema(object(map[string]any{
			"index":      index(),
			"session_id": str(""),
		}, []string{"index"})),
	},
	{
		Name:        ToolStartEdit,
		Description: "Start editing an event chosen by id, index or where filter. If several match, ask the user to pick a number.",
		Parameters: mustSchema(object(map[string]any{
			"id":         eventIDSchema(),
			"index":      index(),
			"where":      whereSchema(),
			"session_id": str(""),
		}, nil)),
	},
}

func filtersSchema() map[string]any {
	s := object(map[string]any{
		"title_includes":           stringArray("All must appear in the title"),
		"title_excludes":           stringArray("None may appear in the title"),
		"description_includes":     stringArray(""),
		"description_excludes":     stringArray(""),
		"location_includes":        stringArray(""),
		"location_excludes":        stringArray(""),
		"has_attendees":            boolean(""),
		"attendee_emails_includes": stringArray("Matches when any attendee contains any of these"),
		"has_location":             boolean(""),
		"is_all_day":               boolean(""),
		"min_duration_minutes":     integer(),
		"max_duration_minutes":     integer(),
		"status":                   str("confirmed, tentative or cancelled"),
		"calendar_ids_includes":    stringArray(""),
		"start_after":              dateTime(""),
		"start_before":             dateTime(""),
		"end_before":               dateTime(""),
		"end_after":                dateTime(""),
		"end_time_equals":          str("HH:MM"),
		"starts_on_date":           str("YYYY-MM-DD"),
		"ends_on_date":             str("YYYY-MM-DD"),
	}, nil)
	s["description"] = "Optional detailed filters; every given predicate must hold"
	return s
}

func whereSchema() map[string]any {
	return object(map[string]any{
		"from":              dateTime(""),
		"to":                dateTime(""),
		"query":             str(""),
		"include_holidays":  boolean(""),
		"include_birthdays": boolean(""),
		"filters":           filtersSchema(),
	}, nil)
}

func attendeesSchema() map[string]any {
	return map[string]any{
		"type":        "array",
		"description": "Attendee email addresses",
		"items": map[string]any{
			"anyOf": []any{
				map[string]any{"type": "string"},
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"email":   map[string]any{"type": "string"},
						"value":   map[string]any{"type": "string"},
						"address": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

func object(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(description string) map[string]any {
	return withDescription(map[string]any{"type": "string"}, description)
}

// dateTime is a string schema without a format keyword; values are parsed
// leniently as KST wall-clock times.
func dateTime(description string) map[string]any {
	return str(description)
}

func boolean(description string) map[string]any {
	return withDescription(map[string]any{"type": "boolean"}, description)
}

func integer() map[string]any {
	return map[string]any{"type": "integer"}
}

func index() map[string]any {
	return map[string]any{"type": "integer", "minimum": 1}
}

func eventIDSchema() map[string]any {
	return map[string]any{"type": []any{"string", "integer"}}
}

func stringArray(description string) map[string]any {
	return withDescription(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, description)
}

func withDescription(s map[string]any, description string) map[string]any {
	if description != "" {
		s["description"] = description
	}
	return s
}

func mustSchema(s map[string]any) json.RawMessage {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return data
}
