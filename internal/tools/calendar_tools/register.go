package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/session"
)

// RegisterCalendarTools registers the calendar tools on an MCP server. When
// readOnly is set the mutating tools are left out. Calls for the same session
// are serialized through locker.
func RegisterCalendarTools(s *mcpserver.MCPServer, d *Dispatcher, locker *session.Locker, readOnly bool) error {
	if d == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if locker == nil {
		locker = session.NewLocker()
	}

	for _, spec := range Specs() {
		if readOnly && spec.Mutating {
			continue
		}
		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, spec.Parameters)
		tool.Annotations.ReadOnlyHint = mcp.ToBoolPtr(!spec.Mutating)
		tool.Annotations.DestructiveHint = mcp.ToBoolPtr(spec.Name == ToolDeleteEvent)
		s.AddTool(tool, mcpHandler(d, locker, spec.Name))
	}
	return nil
}

func mcpHandler(d *Dispatcher, locker *session.Locker, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(request.GetRawArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		sessionID := mcpSessionID(ctx, request)
		if sessionID == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		result := dispatchLocked(ctx, d, locker, name, sessionID, raw)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		if result.Failed() {
			return mcp.NewToolResultError(string(out)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func dispatchLocked(ctx context.Context, d *Dispatcher, locker *session.Locker, name, sessionID string, raw []byte) Result {
	unlock := locker.Lock(sessionID)
	defer unlock()
	return d.Dispatch(ctx, name, sessionID, raw)
}

// mcpSessionID prefers an explicit session_id argument and falls back to the
// MCP client session.
func mcpSessionID(ctx context.Context, request mcp.CallToolRequest) string {
	if s, ok := request.GetArguments()["session_id"].(string); ok && s != "" {
		return s
	}
	if cs := mcpserver.ClientSessionFromContext(ctx); cs != nil {
		return cs.SessionID()
	}
	return ""
}
