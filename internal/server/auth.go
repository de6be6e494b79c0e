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
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/session"
)

// Auth routes.
const (
	LoginPath      = "/auth/google/login"
	CallbackPath   = "/auth/google/callback"
	StatusPath     = "/auth/google/status"
	DisconnectPath = "/auth/google/disconnect"
)

// Google endpoints used outside the oauth2 exchange.
const (
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	DefaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// ErrExchangeFailed is returned when Google rejects an authorization code.
var ErrExchangeFailed = errors.New("authorization code exchange failed")

// CredentialStore keeps the Google token of each chat session.
type CredentialStore interface {
	SaveToken(ctx context.Context, sessionID string, token *oauth2.Token) error
	GetTokenForAccount(ctx context.Context, sessionID string) (*oauth2.Token, error)
	CheckCalendarAccess(ctx context.Context, sessionID string) error
	DeleteToken(ctx context.Context, sessionID string) error
}

// AuthStatusResponse reports whether a session is connected.
type AuthStatusResponse struct {
	SessionID string `json:"session_id"`
	Connected bool   `json:"connected"`
	Calendar  bool   `json:"calendar"`
	Email     string `json:"email,omitempty"`
}

type userInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// AuthHandler serves the Google login flow that binds a credential to a
// chat session.
type AuthHandler struct {
	conf       *oauth2.Config
	creds      CredentialStore
	sessions   session.Store
	tracker    *SessionTracker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	states     *stateStore
	httpClient *http.Client

	userInfoURL string
	revokeURL   string

	// emails remembers the account behind each connected session.
	emails sync.Map
}

// AuthOption configures an AuthHandler.
type AuthOption func(*AuthHandler)

// WithAuthLogger sets the handler logger.
func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(h *AuthHandler) { h.logger = l }
}

// WithAuthMetrics records login outcomes on m.
func WithAuthMetrics(m *instrumentation.Metrics) AuthOption {
	return func(h *AuthHandler) { h.metrics = m }
}

// WithAuthSessionTracker removes disconnected sessions from tracker.
func WithAuthSessionTracker(t *SessionTracker) AuthOption {
	return func(h *AuthHandler) { h.tracker = t }
}

// WithGoogleEndpoints overrides the userinfo and revocation URLs.
func WithGoogleEndpoints(userInfoURL, revokeURL string) AuthOption {
	return func(h *AuthHandler) {
		if userInfoURL != "" {
			h.userInfoURL = userInfoURL
		}
		if revokeURL != "" {
			h.revokeURL = revokeURL
		}
	}
}

// WithAuthHTTPClient sets the client used for userinfo and revocation.
func WithAuthHTTPClient(c *http.Client) AuthOption {
	return func(h *AuthHandler) { h.httpClient = c }
}

// NewAuthHandler creates the auth endpoints. sessions is cleared on
// disconnect and may be nil.
func NewAuthHandler(conf *oauth2.Config, creds CredentialStore, sessions session.Store, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{
		conf:        conf,
		creds:       creds,
		sessions:    sessions,
		logger:      slog.Default(),
		states:      newStateStore(DefaultLoginStateTTL),
		httpClient:  http.DefaultClient,
		userInfoURL: DefaultUserInfoURL,
		revokeURL:   DefaultRevokeURL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the auth routes to mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(LoginPath, h.ServeLogin)
	mux.HandleFunc(CallbackPath, h.ServeCallback)
	mux.HandleFunc(StatusPath, h.ServeStatus)
	mux.HandleFunc(DisconnectPath, h.ServeDisconnect)
}

// ServeLogin redirects to Google's consent screen for the session given in
// the session_id query parameter.
func (h *AuthHandler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	h.logger.Debug("redirecting to google consent", logging.Session(sessionID))
	http.Redirect(w, r, h.AuthCodeURL(sessionID), http.StatusFound)
}

// AuthCodeURL returns Google's consent URL for sessionID. Completing the
// consent lands on the callback, which binds the credential to the session.
func (h *AuthHandler) AuthCodeURL(sessionID string) string {
	state := h.states.issue(sessionID)
	return h.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"))
}

// ServeCallback completes the login: it exchanges the code, checks the
// granted scopes and stores the token for the session.
func (h *AuthHandler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		h.logger.Info("google consent denied", slog.String("error", errCode))
		writeError(w, http.StatusBadRequest, "access_denied", "google did not grant access: "+errCode)
		return
	}

	sessionID, err := h.states.consume(q.Get("state"))
	if err != nil {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		writeError(w, http.StatusBadRequest, "invalid_state", err.Error())
		return
	}
	logger := h.logger.With(logging.Operation("oauth.callback"), logging.Session(sessionID))

	code := q.Get("code")
	if code == "" {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	resp, err := h.ExchangeCode(ctx, sessionID, code)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, ErrExchangeFailed):
		writeError(w, http.StatusBadGateway, "exchange_failed", "failed to exchange authorization code")
	case errors.Is(err, google.ErrMissingScope):
		writeError(w, http.StatusForbidden, "missing_scope", "calendar access was not granted")
	default:
		logger.Error("failed to store token", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "server_error", "failed to store credential")
	}
}

// ExchangeCode trades an authorization code for a token and binds it to
// sessionID. It fails with ErrExchangeFailed when Google rejects the code
// and with google.ErrMissingScope when calendar access was not granted.
func (h *AuthHandler) ExchangeCode(ctx context.Context, sessionID, code string) (*AuthStatusResponse, error) {
	logger := h.logger.With(logging.Operation("oauth.exchange"), logging.Session(sessionID))

	token, err := h.conf.Exchange(ctx, code)
	if err != nil {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		logger.Warn("authorization code exchange failed", logging.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	if err := h.creds.SaveToken(ctx, sessionID, token); err != nil {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	resp := &AuthStatusResponse{SessionID: sessionID, Connected: true, Calendar: true}
	info, err := h.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		logger.Warn("failed to fetch google user info", logging.Err(err))
	} else if info.Email != "" {
		h.emails.Store(sessionID, info.Email)
		resp.Email = info.Email
		logger = logger.With(logging.UserHash(info.Email), logging.Domain(info.Email))
	}

	logger.Info("google calendar connected")
	return resp, nil
}

// ServeStatus reports whether the session in session_id holds a usable
// calendar credential.
func (h *AuthHandler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	writeJSON(w, http.StatusOK, h.Status(r.Context(), sessionID))
}

// Status reports the credential state of sessionID. A token without the
// calendar scope counts as connected but not usable for calendar calls.
func (h *AuthHandler) Status(ctx context.Context, sessionID string) AuthStatusResponse {
	resp := AuthStatusResponse{SessionID: sessionID}
	err := h.creds.CheckCalendarAccess(ctx, sessionID)
	switch {
	case err == nil:
		resp.Connected = true
		resp.Calendar = true
	case errors.Is(err, google.ErrMissingScope):
		resp.Connected = true
	}
	if resp.Connected {
		if email, ok := h.emails.Load(sessionID); ok {
			resp.Email = email.(string)
		}
	}
	return resp
}

// ServeDisconnect revokes the session's Google token and forgets its
// credential and cached calendar state.
func (h *AuthHandler) ServeDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}
	ctx := r.Context()
	logger := h.logger.With(logging.Operation("oauth.disconnect"), logging.Session(sessionID))

	if token, err := h.creds.GetTokenForAccount(ctx, sessionID); err == nil && token != nil {
		// Local state is removed even when revocation fails.
		if err := h.revoke(ctx, token); err != nil {
			logger.Warn("failed to revoke token at google", logging.Err(err))
		}
	}

	if err := h.creds.DeleteToken(ctx, sessionID); err != nil {
		logger.Error("failed to delete token", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "server_error", "failed to delete credential")
		return
	}
	if h.sessions != nil {
		if err := h.sessions.Delete(ctx, sessionID); err != nil {
			logger.Warn("failed to clear session state", logging.Err(err))
		}
	}
	if h.tracker != nil {
		h.tracker.Remove(ctx, sessionID)
	}
	h.emails.Delete(sessionID)

	logger.Info("google calendar disconnected")
	writeJSON(w, http.StatusOK, AuthStatusResponse{SessionID: sessionID})
}

func (h *AuthHandler) fetchUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

func (h *AuthHandler) revoke(ctx context.Context, token *oauth2.Token) error {
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	if value == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", value)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google revocation returned status %d", resp.StatusCode)
	}
	return nil
}
