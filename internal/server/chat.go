package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/teemow/calassist/internal/executor"
	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools/calendar_tools"
)

// ChatPath is the route of the chat endpoint.
const ChatPath = "/schedules/chat"

// maxChatBodyBytes bounds the request body of a chat turn.
const maxChatBodyBytes = 1 << 20

// ApologyReply is returned when a turn could not be completed.
const ApologyReply = "Sorry, something went wrong while handling your request. Please try again."

// Runner executes one chat turn.
type Runner interface {
	Run(ctx context.Context, sessionID string, history []llm.Message, userMessage string) (*executor.Turn, error)
}

// AccessChecker reports whether a session may use the calendar.
type AccessChecker interface {
	CheckCalendarAccess(ctx context.Context, sessionID string) error
}

// ChatRequest is the body of POST /schedules/chat.
type ChatRequest struct {
	UserMessage string        `json:"user_message"`
	History     []llm.Message `json:"history,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
}

// ChatResponse is the reply to a chat turn. ToolResult is null when the
// turn ended without tool actions.
type ChatResponse struct {
	Reply      string                 `json:"reply"`
	ToolResult *calendar_tools.Result `json:"tool_result"`
	SessionID  string                 `json:"session_id"`
}

// AuthErrorResponse is returned with 401 when the session has no calendar
// credential.
type AuthErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	LoginURL  string `json:"login_url,omitempty"`
}

// ChatHandler serves the chat endpoint.
type ChatHandler struct {
	runner  Runner
	access  AccessChecker
	locker  *session.Locker
	tracker *SessionTracker
	logger  *slog.Logger
	newID   func() string
}

// ChatOption configures a ChatHandler.
type ChatOption func(*ChatHandler)

// WithChatLogger sets the handler logger.
func WithChatLogger(l *slog.Logger) ChatOption {
	return func(h *ChatHandler) { h.logger = l }
}

// WithSessionTracker records every turn on tracker.
func WithSessionTracker(tracker *SessionTracker) ChatOption {
	return func(h *ChatHandler) { h.tracker = tracker }
}

// WithSessionIDGenerator overrides how ids for new sessions are made.
func WithSessionIDGenerator(fn func() string) ChatOption {
	return func(h *ChatHandler) { h.newID = fn }
}

// NewChatHandler creates the chat endpoint. locker must be the same Locker
// the MCP surface uses so turns of one session never interleave.
func NewChatHandler(runner Runner, access AccessChecker, locker *session.Locker, opts ...ChatOption) *ChatHandler {
	h := &ChatHandler{
		runner: runner,
		access: access,
		locker: locker,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles one chat turn.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return
	}
	req.UserMessage = strings.TrimSpace(req.UserMessage)
	if req.UserMessage == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_message is required")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = h.newID()
	}
	logger := h.logger.With(logging.Operation("chat"), logging.Session(sessionID))
	ctx := r.Context()

	if err := h.access.CheckCalendarAccess(ctx, sessionID); err != nil {
		logger.Info("chat rejected without calendar access", logging.Err(err))
		msg := "connect your Google Calendar to continue"
		if errors.Is(err, google.ErrMissingScope) {
			msg = "calendar access was not granted; reconnect your Google account"
		}
		writeJSON(w, http.StatusUnauthorized, AuthErrorResponse{
			Error:     "calendar_auth_required",
			Message:   msg,
			SessionID: sessionID,
			LoginURL:  LoginPath + "?session_id=" + url.QueryEscape(sessionID),
		})
		return
	}

	if h.tracker != nil {
		h.tracker.Touch(ctx, sessionID)
	}

	turn, err := h.runTurn(ctx, sessionID, req)
	if err != nil {
		logger.Error("chat turn failed", logging.Err(err))
		writeJSON(w, http.StatusOK, ChatResponse{Reply: ApologyReply, SessionID: sessionID})
		return
	}

	logger.Debug("chat turn finished",
		logging.Status(turn.Outcome),
		logging.Iteration(turn.Iterations))

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:      turn.Reply,
		ToolResult: turn.ToolResult,
		SessionID:  sessionID,
	})
}

// runTurn runs the executor while holding the session lock. A panicking turn
// is reported as an error so the lock is released and the caller still gets
// a reply.
func (h *ChatHandler) runTurn(ctx context.Context, sessionID string, req ChatRequest) (turn *executor.Turn, err error) {
	unlock := h.locker.Lock(sessionID)
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			turn = nil
			err = fmt.Errorf("chat turn panicked: %v", r)
		}
	}()
	return h.runner.Run(ctx, sessionID, req.History, req.UserMessage)
}
