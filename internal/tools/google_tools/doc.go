// Package google_tools provides MCP tools for connecting a chat session to
// Google Calendar.
//
// The tools mirror the HTTP login flow for MCP clients that cannot follow a
// browser redirect back to the server:
//  1. Call google_auth_status to see whether the session is connected
//  2. If not, call google_get_auth_url and open the returned URL
//  3. Grant calendar access and copy the code parameter from the redirect
//  4. Call google_save_auth_code with the code to store the token
//
// Tokens are bound to the session_id argument, or to the MCP client session
// when no session_id is given.
package google_tools
