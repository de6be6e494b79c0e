package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/executor"
	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/session"
)

func TestNewHTTPServer_RequiresChat(t *testing.T) {
	_, err := NewHTTPServer(HTTPServerConfig{})
	assert.Error(t, err)
}

func TestHTTPServer_Routes(t *testing.T) {
	g := newFakeGoogle(t, google.CalendarScope)
	mcpCalled := false

	srv, err := NewHTTPServer(HTTPServerConfig{
		Chat:   NewChatHandler(&fakeRunner{turn: &executor.Turn{Reply: "ok"}}, fakeAccess{}, session.NewLocker()),
		Auth:   newTestAuthHandler(t, g, newFakeCredentials(), nil),
		Health: NewHealthChecker(nil),
		MCP: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mcpCalled = true
			w.WriteHeader(http.StatusAccepted)
		}),
		Metrics: createTestProvider(t).Metrics(),
	})
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{method: http.MethodPost, path: ChatPath, body: `{"user_message":"hi","session_id":"s"}`, want: http.StatusOK},
		{method: http.MethodGet, path: LoginPath + "?session_id=s", want: http.StatusFound},
		{method: http.MethodGet, path: StatusPath + "?session_id=s", want: http.StatusOK},
		{method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{method: http.MethodPost, path: "/mcp", want: http.StatusAccepted},
		{method: http.MethodGet, path: "/unknown", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.True(t, mcpCalled)
}

func TestHTTPServer_StartAndShutdown(t *testing.T) {
	srv, err := NewHTTPServer(HTTPServerConfig{
		Addr:   "127.0.0.1:0",
		Chat:   NewChatHandler(&fakeRunner{turn: &executor.Turn{Reply: "ok"}}, fakeAccess{}, session.NewLocker()),
		Health: NewHealthChecker(nil),
	})
	require.NoError(t, err)

	ready := make(chan struct{})
	errs := make(chan error, 1)
	go func() { errs <- srv.Start(ready) }()

	select {
	case <-ready:
	case err := <-errs:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	resp, err := http.Get("http://" + srv.BoundAddr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-errs, http.ErrServerClosed)
}

func TestMetricsMiddleware_CapturesStatus(t *testing.T) {
	var seen int
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		inner.ServeHTTP(rec, r)
		seen = rec.status
	})

	rec := httptest.NewRecorder()
	MetricsMiddleware(nil, capture).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, seen)
}

func TestValidateRedirectURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "https://calendar.example.com/auth/google/callback"},
		{url: "http://localhost:8080/auth/google/callback"},
		{url: "http://127.0.0.1:8080/auth/google/callback"},
		{url: "http://[::1]:8080/auth/google/callback"},
		{url: "http://calendar.example.com/auth/google/callback", wantErr: true},
		{url: "ftp://example.com", wantErr: true},
		{url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateRedirectURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
