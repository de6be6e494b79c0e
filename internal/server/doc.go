// Package server exposes the calendar assistant over HTTP.
//
// # Key Components
//
// ChatHandler serves POST /schedules/chat. It resolves or creates the chat
// session, checks that the session holds a Google credential with calendar
// access, serializes turns per session and runs the tool executor.
//
// AuthHandler implements the Google OAuth login flow for a chat session:
//   - GET  /auth/google/login?session_id=   redirect to Google's consent page
//   - GET  /auth/google/callback            exchange the code, store the token
//   - GET  /auth/google/status?session_id=  connection status
//   - POST /auth/google/disconnect          revoke and forget the token
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed. Readiness
// includes registered dependency checks such as the session store.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
//
// HTTPServer mounts these handlers, plus the MCP streamable-http endpoint
// at /mcp when enabled, behind a request metrics middleware.
//
// RateLimiter keeps a token bucket per client IP in front of the chat
// endpoint, since every turn may cost several model calls.
//
// SessionTracker counts active chat sessions for the active-session gauge.
package server
