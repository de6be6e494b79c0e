package google_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/server"
)

// Tool names.
const (
	ToolGetAuthURL   = "google_get_auth_url"
	ToolSaveAuthCode = "google_save_auth_code"
	ToolAuthStatus   = "google_auth_status"
)

// Authenticator runs the Google consent flow for a session.
// *server.AuthHandler satisfies it.
type Authenticator interface {
	AuthCodeURL(sessionID string) string
	ExchangeCode(ctx context.Context, sessionID, code string) (*server.AuthStatusResponse, error)
	Status(ctx context.Context, sessionID string) server.AuthStatusResponse
}

// RegisterGoogleTools registers the Google auth tools with the MCP server.
func RegisterGoogleTools(s *mcpserver.MCPServer, auth Authenticator) error {
	if auth == nil {
		return fmt.Errorf("authenticator is required")
	}

	sessionArg := mcp.WithString("session_id",
		mcp.Description("Chat session to connect. Defaults to the MCP client session."),
	)

	getAuthURLTool := mcp.NewTool(ToolGetAuthURL,
		mcp.WithDescription("Get the URL where the user grants Google Calendar access for a session"),
		mcp.WithReadOnlyHintAnnotation(true),
		sessionArg,
	)
	s.AddTool(getAuthURLTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetAuthURL(ctx, request, auth)
	})

	saveAuthCodeTool := mcp.NewTool(ToolSaveAuthCode,
		mcp.WithDescription("Exchange a Google authorization code and store the calendar token for a session"),
		sessionArg,
		mcp.WithString("auth_code",
			mcp.Required(),
			mcp.Description("The code parameter Google appended to the redirect URL"),
		),
	)
	s.AddTool(saveAuthCodeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSaveAuthCode(ctx, request, auth)
	})

	statusTool := mcp.NewTool(ToolAuthStatus,
		mcp.WithDescription("Report whether a session holds a usable Google Calendar credential"),
		mcp.WithReadOnlyHintAnnotation(true),
		sessionArg,
	)
	s.AddTool(statusTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAuthStatus(ctx, request, auth)
	})

	return nil
}

func handleGetAuthURL(ctx context.Context, request mcp.CallToolRequest, auth Authenticator) (*mcp.CallToolResult, error) {
	sessionID := sessionIDFrom(ctx, request)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	authURL := auth.AuthCodeURL(sessionID)

	result := fmt.Sprintf(`To connect Google Calendar for session %q:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to your calendar

If the browser is redirected back to the server the session is connected.
Otherwise copy the code parameter from the redirect URL and call %s with it.`, sessionID, authURL, ToolSaveAuthCode)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, auth Authenticator) (*mcp.CallToolResult, error) {
	sessionID := sessionIDFrom(ctx, request)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	authCode, _ := request.GetArguments()["auth_code"].(string)
	authCode = strings.TrimSpace(authCode)
	if authCode == "" {
		return mcp.NewToolResultError("auth_code is required"), nil
	}

	status, err := auth.ExchangeCode(ctx, sessionID, authCode)
	switch {
	case errors.Is(err, google.ErrMissingScope):
		return mcp.NewToolResultError("Google did not grant calendar access. Call " + ToolGetAuthURL + " again and allow calendar access."), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code for session %s: %v", sessionID, err)), nil
	}

	msg := fmt.Sprintf("Authorization successful for session %q. Calendar tools can now be used.", sessionID)
	if status != nil && status.Email != "" {
		msg = fmt.Sprintf("Authorization successful for session %q as %s. Calendar tools can now be used.", sessionID, status.Email)
	}
	return mcp.NewToolResultText(msg), nil
}

func handleAuthStatus(ctx context.Context, request mcp.CallToolRequest, auth Authenticator) (*mcp.CallToolResult, error) {
	sessionID := sessionIDFrom(ctx, request)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	out, err := json.MarshalIndent(auth.Status(ctx, sessionID), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func sessionIDFrom(ctx context.Context, request mcp.CallToolRequest) string {
	if s, ok := request.GetArguments()["session_id"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	if cs := mcpserver.ClientSessionFromContext(ctx); cs != nil {
		return cs.SessionID()
	}
	return ""
}
