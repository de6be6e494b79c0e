package instrumentation

import "testing"

func TestToolLabel(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"list_events", "list_events"},
		{"create_event", "create_event"},
		{"update_event", "update_event"},
		{"delete_event", "delete_event"},
		{"get_event_detail", "get_event_detail"},
		{"get_event_detail_by_index", "get_event_detail_by_index"},
		{"start_edit", "start_edit"},
		{"send_email", UnknownTool},
		{"", UnknownTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToolLabel(tt.name); got != tt.expected {
				t.Errorf("ToolLabel(%q) = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}
