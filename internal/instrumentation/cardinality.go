package instrumentation

// Cardinality management helpers for metrics.
//
// Tool names arrive from model output and are not trusted: a model can
// invent arbitrary names, and each one would otherwise become a new label
// value. Label values are therefore restricted to a known set.

// Operation types used for calendar provider metrics and spans.
const (
	OperationList         = "list"
	OperationGet          = "get"
	OperationInsert       = "insert"
	OperationPatch        = "patch"
	OperationDelete       = "delete"
	OperationCalendarList = "calendar_list"
	OperationChat         = "chat"
)

// UnknownTool is the label used for tool names outside the registry.
const UnknownTool = "unknown"

var knownTools = map[string]bool{
	"list_events":               true,
	"create_event":              true,
	"update_event":              true,
	"delete_event":              true,
	"get_event_detail":          true,
	"get_event_detail_by_index": true,
	"start_edit":                true,
}

// ToolLabel returns name when it is a registered tool and UnknownTool otherwise.
//
// Example:
//
//	ToolLabel("delete_event")    // "delete_event"
//	ToolLabel("drop_database")   // "unknown"
func ToolLabel(name string) string {
	if knownTools[name] {
		return name
	}
	return UnknownTool
}
