package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-oauth/storage/memory"
)

func calendarToken(access string, expiry time.Time) *oauth2.Token {
	return (&oauth2.Token{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}).WithExtra(map[string]any{"scope": "openid " + CalendarScope})
}

func TestSessionTokenProvider_SaveAndGet(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	p := NewSessionTokenProvider(store, Config{}.OAuthConfig(), nil, nil)
	ctx := context.Background()

	require.NoError(t, p.SaveToken(ctx, "session-1", calendarToken("access-1", time.Now().Add(time.Hour))))

	token, err := p.GetTokenForAccount(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.True(t, p.HasTokenForAccount("session-1"))
	assert.NoError(t, p.CheckCalendarAccess(ctx, "session-1"))
}

func TestSessionTokenProvider_UnknownSession(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	p := NewSessionTokenProvider(store, Config{}.OAuthConfig(), nil, nil)
	ctx := context.Background()

	_, err := p.GetTokenForAccount(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.False(t, p.HasTokenForAccount("nobody"))
	assert.False(t, p.HasTokenForAccount(""))
	assert.ErrorIs(t, p.CheckCalendarAccess(ctx, "nobody"), ErrNoCredential)
	assert.ErrorIs(t, p.CheckCalendarAccess(ctx, ""), ErrNoCredential)
}

func TestSessionTokenProvider_SaveRejectsMissingScope(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	p := NewSessionTokenProvider(store, Config{}.OAuthConfig(), nil, nil)
	token := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{"scope": "openid email"})

	err := p.SaveToken(context.Background(), "session-1", token)
	assert.ErrorIs(t, err, ErrMissingScope)
	assert.False(t, p.HasTokenForAccount("session-1"))
}

func TestSessionTokenProvider_SaveValidatesInput(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	p := NewSessionTokenProvider(store, Config{}.OAuthConfig(), nil, nil)

	assert.Error(t, p.SaveToken(context.Background(), "", calendarToken("a", time.Time{})))
	assert.Error(t, p.SaveToken(context.Background(), "session-1", nil))
	assert.Error(t, p.SaveToken(context.Background(), "session-1", &oauth2.Token{}))
}

func TestSessionTokenProvider_RefreshesExpiredToken(t *testing.T) {
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-old", r.PostForm.Get("refresh_token"))
		refreshes.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	conf := Config{ClientID: "id", ClientSecret: "secret"}.OAuthConfig()
	conf.Endpoint = oauth2.Endpoint{TokenURL: server.URL, AuthStyle: oauth2.AuthStyleInParams}

	store := memory.New()
	defer store.Stop()

	p := NewSessionTokenProvider(store, conf, nil, nil)
	ctx := context.Background()
	require.NoError(t, p.SaveToken(ctx, "session-1", calendarToken("old", time.Now().Add(30*time.Second))))

	token, err := p.GetTokenForAccount(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "new", token.AccessToken)
	assert.Equal(t, "refresh-old", token.RefreshToken, "the refresh token is kept")
	assert.True(t, HasCalendarScope(token))
	assert.Equal(t, int32(1), refreshes.Load())

	stored, err := store.GetToken(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
}

func TestSessionTokenProvider_RefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	conf := Config{ClientID: "id", ClientSecret: "secret"}.OAuthConfig()
	conf.Endpoint = oauth2.Endpoint{TokenURL: server.URL, AuthStyle: oauth2.AuthStyleInParams}

	store := memory.New()
	defer store.Stop()

	p := NewSessionTokenProvider(store, conf, nil, nil)
	ctx := context.Background()
	require.NoError(t, p.SaveToken(ctx, "session-1", calendarToken("old", time.Now().Add(10*time.Second))))

	_, err := p.GetTokenForAccount(ctx, "session-1")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestHasCalendarScope(t *testing.T) {
	tests := []struct {
		name  string
		token *oauth2.Token
		want  bool
	}{
		{"nil", nil, false},
		{"unknown scopes", &oauth2.Token{AccessToken: "a"}, true},
		{"calendar granted", (&oauth2.Token{}).WithExtra(map[string]any{"scope": "openid " + CalendarScope}), true},
		{"read-only only", (&oauth2.Token{}).WithExtra(map[string]any{"scope": CalendarScope + ".readonly"}), false},
		{"email only", (&oauth2.Token{}).WithExtra(map[string]any{"scope": "openid email"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCalendarScope(tt.token))
		})
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
	}
	require.NoError(t, cfg.Validate())

	conf := cfg.OAuthConfig()
	assert.Equal(t, "client", conf.ClientID)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", conf.RedirectURL)
	assert.Equal(t, DefaultOAuthScopes, conf.Scopes)

	assert.Error(t, Config{ClientID: "only-id"}.Validate())
}
