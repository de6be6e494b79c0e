package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-oauth/storage"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

var (
	// ErrNoCredential is returned when a session has no usable Google token.
	ErrNoCredential = errors.New("google: session is not connected")
	// ErrMissingScope is returned when the granted scopes lack calendar access.
	ErrMissingScope = errors.New("google: calendar scope not granted")
)

// refreshLeeway refreshes tokens that expire within this window.
const refreshLeeway = time.Minute

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
type TokenProvider interface {
	// GetTokenForAccount returns a valid token for the account, which is
	// the chat session id.
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the account.
	HasTokenForAccount(account string) bool
}

// tokenDeleter is implemented by token stores that can remove a token.
type tokenDeleter interface {
	DeleteToken(ctx context.Context, userID string) error
}

// SessionTokenProvider keeps one Google token per session in an mcp-oauth
// token store.
type SessionTokenProvider struct {
	store   storage.TokenStore
	conf    *oauth2.Config
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

var _ TokenProvider = (*SessionTokenProvider)(nil)

// NewSessionTokenProvider creates a provider over store. conf is used to
// refresh expired tokens; metrics may be nil.
func NewSessionTokenProvider(store storage.TokenStore, conf *oauth2.Config, metrics *instrumentation.Metrics, logger *slog.Logger) *SessionTokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionTokenProvider{
		store:   store,
		conf:    conf,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// SaveToken stores token for sessionID. The granted scopes must include
// calendar access.
func (p *SessionTokenProvider) SaveToken(ctx context.Context, sessionID string, token *oauth2.Token) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if !HasCalendarScope(token) {
		return ErrMissingScope
	}
	if err := p.store.SaveToken(ctx, sessionID, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetTokenForAccount returns the session's token, refreshing it first when
// it is expired or about to expire.
func (p *SessionTokenProvider) GetTokenForAccount(ctx context.Context, sessionID string) (*oauth2.Token, error) {
	token, err := p.store.GetToken(ctx, sessionID)
	if err != nil || token == nil {
		return nil, ErrNoCredential
	}

	if token.Expiry.IsZero() || token.Expiry.After(p.now().Add(refreshLeeway)) {
		return token, nil
	}

	if token.RefreshToken == "" {
		p.logger.Info("token expired without refresh token", logging.Session(sessionID))
		return nil, ErrNoCredential
	}

	return p.refresh(ctx, sessionID, token)
}

func (p *SessionTokenProvider) refresh(ctx context.Context, sessionID string, token *oauth2.Token) (*oauth2.Token, error) {
	// Force the token source to refresh even if the token still looks valid
	// to the oauth2 package.
	expired := *token
	expired.Expiry = time.Unix(1, 0)

	fresh, err := p.conf.TokenSource(ctx, &expired).Token()
	if err != nil {
		p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		p.logger.Warn("token refresh failed", logging.Session(sessionID), logging.Err(err))
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrNoCredential, err)
	}
	p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)

	// Google omits the refresh token and scope on refresh responses.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}
	if _, ok := fresh.Extra("scope").(string); !ok {
		if scope, ok := token.Extra("scope").(string); ok {
			fresh = fresh.WithExtra(map[string]any{"scope": scope})
		}
	}

	if err := p.store.SaveToken(ctx, sessionID, fresh); err != nil {
		p.logger.Warn("failed to store refreshed token", logging.Session(sessionID), logging.Err(err))
	}
	return fresh, nil
}

// HasTokenForAccount checks if a token exists for the session.
func (p *SessionTokenProvider) HasTokenForAccount(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	token, err := p.store.GetToken(context.Background(), sessionID)
	return err == nil && token != nil
}

// CheckCalendarAccess returns ErrNoCredential when the session has no token
// and ErrMissingScope when the token lacks calendar access.
func (p *SessionTokenProvider) CheckCalendarAccess(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoCredential
	}
	token, err := p.store.GetToken(ctx, sessionID)
	if err != nil || token == nil {
		return ErrNoCredential
	}
	if !HasCalendarScope(token) {
		return ErrMissingScope
	}
	return nil
}

// DeleteToken removes the session's token.
func (p *SessionTokenProvider) DeleteToken(ctx context.Context, sessionID string) error {
	d, ok := p.store.(tokenDeleter)
	if !ok {
		return fmt.Errorf("token store does not support deletion")
	}
	if err := d.DeleteToken(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// HasCalendarScope reports whether token carries calendar access. Tokens
// whose granted scopes are unknown are accepted.
func HasCalendarScope(token *oauth2.Token) bool {
	if token == nil {
		return false
	}
	scope, ok := token.Extra("scope").(string)
	if !ok {
		return true
	}
	return HasScope(scope, CalendarScope)
}
