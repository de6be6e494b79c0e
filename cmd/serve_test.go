package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/session"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "openid",
			expected: []string{"openid"},
		},
		{
			name:     "multiple values",
			input:    "openid,email",
			expected: []string{"openid", "email"},
		},
		{
			name:     "values with spaces around comma",
			input:    "openid, email",
			expected: []string{"openid", "email"},
		},
		{
			name:     "values with leading/trailing spaces",
			input:    "  openid  ,  email  ",
			expected: []string{"openid", "email"},
		},
		{
			name:     "trailing comma",
			input:    "openid,email,",
			expected: []string{"openid", "email"},
		},
		{
			name:     "leading comma",
			input:    ",openid,email",
			expected: []string{"openid", "email"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "openid,,email",
			expected: []string{"openid", "email"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: []string{},
		},
		{
			name:     "single value with surrounding whitespace",
			input:    "  openid  ",
			expected: []string{"openid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparatedList(tt.input)

			// Handle nil vs empty slice comparison
			if tt.expected == nil {
				if result != nil {
					t.Errorf("parseCommaSeparatedList(%q) = %v, want nil", tt.input, result)
				}
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("parseCommaSeparatedList(%q) = %v (len %d), want %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
				return
			}

			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCommaSeparatedList(%q)[%d] = %q, want %q",
						tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_SCOPES", "openid, "+google.CalendarScope)
	t.Setenv("SESSION_STORE_TYPE", "valkey")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("VALKEY_URL", "valkey:6379")
	t.Setenv("VALKEY_TLS_ENABLED", "true")
	t.Setenv("VALKEY_DB", "3")
	t.Setenv("METRICS_ENABLED", "false")

	cmd := newServeCmd()
	require.NoError(t, cmd.Flags().Set("llm-model", "flag-model"))

	cfg := ServeConfig{LLM: LLMConfig{Model: "flag-model"}, Metrics: MetricsConfig{Enabled: true}}
	loadServeEnvVars(cmd, &cfg)

	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "flag-model", cfg.LLM.Model, "explicit flags win over the environment")
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "env-client", cfg.Google.ClientID)
	assert.Equal(t, []string{"openid", google.CalendarScope}, cfg.Google.Scopes)
	assert.Equal(t, StoreTypeValkey, cfg.Storage.Type)
	assert.Equal(t, 2*time.Hour, cfg.Storage.TTL)
	assert.Equal(t, "valkey:6379", cfg.Storage.Valkey.URL)
	assert.True(t, cfg.Storage.Valkey.TLSEnabled)
	assert.Equal(t, 3, cfg.Storage.Valkey.DB)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestServeConfig_Validate(t *testing.T) {
	valid := func() ServeConfig {
		return ServeConfig{
			LLM:     LLMConfig{APIKey: "sk"},
			Google:  GoogleConfig{ClientID: "id", ClientSecret: "secret"},
			Storage: StorageConfig{Type: StoreTypeMemory},
		}
	}

	tests := []struct {
		name        string
		mutate      func(*ServeConfig)
		errContains string
	}{
		{name: "valid", mutate: func(*ServeConfig) {}},
		{name: "missing api key", mutate: func(c *ServeConfig) { c.LLM.APIKey = "" }, errContains: "LLM API key"},
		{name: "missing google secret", mutate: func(c *ServeConfig) { c.Google.ClientSecret = "" }, errContains: "google OAuth credentials"},
		{name: "insecure redirect", mutate: func(c *ServeConfig) { c.Google.RedirectURL = "http://example.com/cb" }, errContains: "HTTPS"},
		{name: "scopes without calendar", mutate: func(c *ServeConfig) { c.Google.Scopes = []string{"openid"} }, errContains: "must include"},
		{name: "valkey without url", mutate: func(c *ServeConfig) { c.Storage.Type = StoreTypeValkey }, errContains: "valkey-url"},
		{name: "unknown store", mutate: func(c *ServeConfig) { c.Storage.Type = "redis" }, errContains: "unsupported session store"},
		{name: "unknown transport", mutate: func(c *ServeConfig) { c.MCPTransport = "sse" }, errContains: "unsupported MCP transport"},
		{name: "stdio transport", mutate: func(c *ServeConfig) { c.MCPTransport = MCPTransportStdio }},
		{name: "negative rate limit", mutate: func(c *ServeConfig) { c.RateLimit.PerSecond = -1 }, errContains: "must not be negative"},
		{name: "rate limit without burst", mutate: func(c *ServeConfig) { c.RateLimit.PerSecond = 2 }, errContains: "burst"},
		{name: "rate limit", mutate: func(c *ServeConfig) { c.RateLimit = RateLimitConfig{PerSecond: 2, Burst: 5} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestRedirectURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/auth/google/callback", redirectURL(ServeConfig{HTTPAddr: ":8080"}))
	assert.Equal(t, "http://127.0.0.1:9000/auth/google/callback", redirectURL(ServeConfig{HTTPAddr: "127.0.0.1:9000"}))
	assert.Equal(t, "https://cal.example.com/cb", redirectURL(ServeConfig{
		HTTPAddr: ":8080",
		Google:   GoogleConfig{RedirectURL: "https://cal.example.com/cb"},
	}))
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, newRateLimiter(RateLimitConfig{}))

	rl := newRateLimiter(RateLimitConfig{PerSecond: 1, Burst: 1})
	require.NotNil(t, rl)
	defer rl.Stop()
	assert.True(t, rl.Allow("192.0.2.1"))
	assert.False(t, rl.Allow("192.0.2.1"))
}

func TestNewSessionStore_Memory(t *testing.T) {
	store, checks, err := newSessionStore(StorageConfig{Type: StoreTypeMemory, TTL: time.Hour}, nil, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &session.MemoryStore{}, store)
	assert.Empty(t, checks)

	_, _, err = newSessionStore(StorageConfig{Type: "redis"}, nil, nil)
	assert.Error(t, err)
}

func TestGenerateDocs(t *testing.T) {
	var out strings.Builder
	require.NoError(t, runGenerateDocs(&out, ""))

	md := out.String()
	assert.Contains(t, md, "# Calendar Tools Reference")
	assert.Contains(t, md, "## Reading Tools")
	assert.Contains(t, md, "## Changing Tools")
	for _, name := range []string{"list_events", "create_event", "update_event", "delete_event", "get_event_detail", "get_event_detail_by_index", "start_edit"} {
		assert.Contains(t, md, "### "+name)
	}
	assert.Contains(t, md, "- `title` (string, required)")
	assert.Less(t, strings.Index(md, "## Changing Tools"), strings.Index(md, "## Reading Tools"))

	path := filepath.Join(t.TempDir(), "tools.md")
	require.NoError(t, runGenerateDocs(&out, path))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, md, string(written))
}
