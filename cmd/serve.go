package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-oauth/storage/memory"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/executor"
	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/resources"
	"github.com/teemow/calassist/internal/server"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools/calendar_tools"
	"github.com/teemow/calassist/internal/tools/google_tools"
)

// Session store backends.
const (
	StoreTypeMemory = "memory"
	StoreTypeValkey = "valkey"
)

// MCP transports.
const (
	MCPTransportNone           = ""
	MCPTransportStdio          = "stdio"
	MCPTransportStreamableHTTP = "streamable-http"
)

// ServeConfig holds everything serve needs after flags and environment are
// merged.
type ServeConfig struct {
	Debug        bool
	HTTPAddr     string
	MCPTransport string
	MCPReadOnly  bool

	LLM     LLMConfig
	Google  GoogleConfig
	Storage   StorageConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

// RateLimitConfig bounds chat requests per client IP.
type RateLimitConfig struct {
	// PerSecond is the sustained request rate. 0 disables rate limiting.
	PerSecond float64
	Burst     int

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	TrustProxy bool
}

// LLMConfig configures the chat-completions endpoint.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig = google.Config

// StorageConfig selects the session state backend.
type StorageConfig struct {
	// Type is "memory" or "valkey" (default: "memory")
	Type string

	// TTL is how long idle session state is kept.
	TTL time.Duration

	// Valkey configuration (used when Type is "valkey")
	Valkey ValkeyStorageConfig
}

// ValkeyStorageConfig holds configuration for the Valkey session store.
type ValkeyStorageConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379")
	URL string

	// Password is the optional password for Valkey authentication
	Password string

	// TLSEnabled enables TLS for Valkey connections
	TLSEnabled bool

	// KeyPrefix is the prefix for all Valkey keys
	KeyPrefix string

	// DB is the Valkey database number (default: 0)
	DB int
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		cfg          ServeConfig
		googleScopes string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar assistant",
		Long: `Start the calendar assistant HTTP server.

Endpoints:
  POST /schedules/chat              chat turn with the assistant
  GET  /auth/google/login           connect a Google account to a chat session
  GET  /auth/google/callback        OAuth redirect target
  GET  /auth/google/status          connection status of a session
  POST /auth/google/disconnect      revoke and forget a session's credential
  GET  /healthz, /readyz            health checks

The calendar tools can additionally be exposed over the Model Context
Protocol with --mcp-transport:
  - stdio: MCP on standard input/output, HTTP endpoints keep running
  - streamable-http: MCP mounted at /mcp on the HTTP server

Every flag falls back to its environment variable when not set explicitly.
A .env file in the working directory is loaded first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load .env file: %w", err)
			}

			cfg.Google.Scopes = parseCommaSeparatedList(googleScopes)
			loadServeEnvVars(cmd, &cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().StringVar(&cfg.MCPTransport, "mcp-transport", MCPTransportNone, "Expose the calendar tools over MCP: stdio or streamable-http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().BoolVar(&cfg.MCPReadOnly, "mcp-read-only", false, "Only register the read-only tools on the MCP surface. Can also use MCP_READ_ONLY env var.")

	cmd.Flags().StringVar(&cfg.LLM.BaseURL, "llm-base-url", llm.DefaultBaseURL, "OpenAI-compatible API base URL. Can also use LLM_BASE_URL env var.")
	cmd.Flags().StringVar(&cfg.LLM.APIKey, "llm-api-key", "", "API key for the language model. Can also use LLM_API_KEY env var.")
	cmd.Flags().StringVar(&cfg.LLM.Model, "llm-model", llm.DefaultModel, "Model name. Can also use LLM_MODEL env var.")
	cmd.Flags().DurationVar(&cfg.LLM.Timeout, "llm-timeout", llm.DefaultTimeout, "Timeout per model request. Can also use LLM_TIMEOUT env var.")

	cmd.Flags().StringVar(&cfg.Google.ClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.Google.ClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.Google.RedirectURL, "google-redirect-url", "", "OAuth redirect URL, ending in /auth/google/callback. Can also use GOOGLE_REDIRECT_URL env var.")
	cmd.Flags().StringVar(&googleScopes, "google-scopes", "", "Comma-separated OAuth scopes (default: openid, email and calendar). Can also use GOOGLE_SCOPES env var.")

	cmd.Flags().StringVar(&cfg.Storage.Type, "session-store-type", StoreTypeMemory, "Session state storage: memory or valkey. Can also use SESSION_STORE_TYPE env var.")
	cmd.Flags().DurationVar(&cfg.Storage.TTL, "session-ttl", session.DefaultTTL, "How long idle session state is kept. Can also use SESSION_TTL env var.")
	cmd.Flags().StringVar(&cfg.Storage.Valkey.URL, "valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379). Can also use VALKEY_URL env var.")
	cmd.Flags().StringVar(&cfg.Storage.Valkey.Password, "valkey-password", "", "Valkey authentication password. Can also use VALKEY_PASSWORD env var.")
	cmd.Flags().BoolVar(&cfg.Storage.Valkey.TLSEnabled, "valkey-tls", false, "Enable TLS for Valkey connections. Can also use VALKEY_TLS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Storage.Valkey.KeyPrefix, "valkey-key-prefix", session.DefaultKeyPrefix, "Prefix for all Valkey keys. Can also use VALKEY_KEY_PREFIX env var.")
	cmd.Flags().IntVar(&cfg.Storage.Valkey.DB, "valkey-db", 0, "Valkey database number. Can also use VALKEY_DB env var.")

	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	cmd.Flags().Float64Var(&cfg.RateLimit.PerSecond, "rate-limit", server.DefaultRateLimit, "Chat requests per second per client IP, 0 disables. Can also use RATE_LIMIT env var.")
	cmd.Flags().IntVar(&cfg.RateLimit.Burst, "rate-limit-burst", server.DefaultRateLimitBurst, "Chat request burst per client IP. Can also use RATE_LIMIT_BURST env var.")
	cmd.Flags().BoolVar(&cfg.RateLimit.TrustProxy, "trust-proxy", false, "Trust X-Forwarded-For and X-Real-IP for the client address. Can also use TRUST_PROXY env var.")

	return cmd
}

// Validate checks the merged configuration.
func (c ServeConfig) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("an LLM API key is required (--llm-api-key or LLM_API_KEY)")
	}
	if err := c.Google.Validate(); err != nil {
		return fmt.Errorf("google OAuth credentials are required (--google-client-id/--google-client-secret): %w", err)
	}
	if c.Google.RedirectURL != "" {
		if err := server.ValidateRedirectURL(c.Google.RedirectURL); err != nil {
			return err
		}
	}
	if len(c.Google.Scopes) > 0 && !containsScope(c.Google.Scopes, google.CalendarScope) {
		return fmt.Errorf("google scopes must include %s", google.CalendarScope)
	}
	switch c.Storage.Type {
	case StoreTypeMemory:
	case StoreTypeValkey:
		if c.Storage.Valkey.URL == "" {
			return fmt.Errorf("valkey session store requires --valkey-url or VALKEY_URL")
		}
	default:
		return fmt.Errorf("unsupported session store type: %s (supported: memory, valkey)", c.Storage.Type)
	}
	if c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}
	switch c.MCPTransport {
	case MCPTransportNone, MCPTransportStdio, MCPTransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported MCP transport: %s (supported: stdio, streamable-http)", c.MCPTransport)
	}
	return nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func runServe(ctx context.Context, cfg ServeConfig) error {
	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	serverContext := server.NewServerContext(ctx)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", "error", err)
		}
	}()
	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}

	metricsServer, err := startMetricsServer(cfg.Metrics, provider, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during metrics server shutdown", "error", err)
			}
		}()
	}

	// Session state
	store, checks, err := newSessionStore(cfg.Storage, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing session store", "error", err)
		}
	}()

	// Google credentials, one token per chat session
	googleConf := cfg.Google
	googleConf.RedirectURL = redirectURL(cfg)
	oauthConf := googleConf.OAuthConfig()

	tokenStore := memory.New()
	defer tokenStore.Stop()
	tokens := google.NewSessionTokenProvider(tokenStore, oauthConf, metrics, logger)

	// Calendar tools
	calendarClient := calendar.NewClient(
		calendar.NewServiceFactory(tokens, oauthConf, calendar.DefaultRequestTimeout),
		calendar.WithMetrics(metrics),
		calendar.WithLogger(logger),
	)
	dispatcher := calendar_tools.NewDispatcher(calendarClient, store,
		calendar_tools.WithInstrumentation(serverContext),
		calendar_tools.WithLogger(logger),
	)
	locker := session.NewLocker()

	// Executor
	llmClient := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, llm.WithMetrics(metrics), llm.WithLogger(logger))
	exec := executor.New(llmClient, dispatcher, dispatcher.Specs(),
		executor.WithMetrics(metrics),
		executor.WithLogger(logger),
	)

	// HTTP surface
	tracker := server.NewSessionTracker(cfg.Storage.TTL, metrics, logger)
	defer tracker.Stop()

	health := server.NewHealthChecker(serverContext)
	for name, check := range checks {
		health.AddCheck(name, check)
	}

	authHandler := server.NewAuthHandler(oauthConf, tokens, store,
		server.WithAuthLogger(logger),
		server.WithAuthMetrics(metrics),
		server.WithAuthSessionTracker(tracker))

	limiter := newRateLimiter(cfg.RateLimit)
	if limiter != nil {
		defer limiter.Stop()
	}

	httpConfig := server.HTTPServerConfig{
		Addr: cfg.HTTPAddr,
		Chat: server.NewChatHandler(exec, tokens, locker,
			server.WithChatLogger(logger),
			server.WithSessionTracker(tracker)),
		Auth:        authHandler,
		Health:      health,
		Metrics:     metrics,
		Logger:      logger,
		RateLimiter: limiter,
	}

	var mcpSrv *mcpserver.MCPServer
	if cfg.MCPTransport != MCPTransportNone {
		mcpSrv = mcpserver.NewMCPServer("calassist", version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, false),
		)
		if err := calendar_tools.RegisterCalendarTools(mcpSrv, dispatcher, locker, cfg.MCPReadOnly); err != nil {
			return fmt.Errorf("failed to register calendar tools: %w", err)
		}
		if err := google_tools.RegisterGoogleTools(mcpSrv, authHandler); err != nil {
			return fmt.Errorf("failed to register google tools: %w", err)
		}
		if err := resources.RegisterSessionResources(mcpSrv, store, calendarClient); err != nil {
			return fmt.Errorf("failed to register session resources: %w", err)
		}
		if cfg.MCPTransport == MCPTransportStreamableHTTP {
			httpConfig.MCP = mcpserver.NewStreamableHTTPServer(mcpSrv,
				mcpserver.WithEndpointPath("/mcp"),
			)
		}
	}

	httpServer, err := server.NewHTTPServer(httpConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("starting calassist",
		"version", version,
		"http_addr", cfg.HTTPAddr,
		"model", llmClient.Model(),
		"session_store", cfg.Storage.Type,
		"mcp_transport", cfg.MCPTransport)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	stdioDone := make(chan error, 1)
	if cfg.MCPTransport == MCPTransportStdio {
		go func() {
			defer close(stdioDone)
			if err := mcpserver.ServeStdio(mcpSrv); err != nil {
				stdioDone <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	case err, ok := <-stdioDone:
		if ok && err != nil {
			runErr = fmt.Errorf("MCP stdio server stopped with error: %w", err)
		}
	}

	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("error shutting down HTTP server: %w", err)
	}

	if runErr == nil {
		logger.Info("HTTP server gracefully stopped")
	}
	return runErr
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	// stderr keeps stdout free for the MCP stdio transport.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	if !cfg.Enabled || !provider.Enabled() {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// newSessionStore builds the configured store and the readiness checks it
// contributes.
func newSessionStore(cfg StorageConfig, metrics *instrumentation.Metrics, logger *slog.Logger) (session.Store, map[string]server.CheckFunc, error) {
	opts := []session.Option{
		session.WithTTL(cfg.TTL),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
	}

	switch cfg.Type {
	case StoreTypeMemory, "":
		return session.NewMemoryStore(opts...), nil, nil
	case StoreTypeValkey:
		store, err := session.NewValkeyStore(session.ValkeyConfig{
			Addr:       cfg.Valkey.URL,
			Password:   cfg.Valkey.Password,
			DB:         cfg.Valkey.DB,
			TLSEnabled: cfg.Valkey.TLSEnabled,
			KeyPrefix:  cfg.Valkey.KeyPrefix,
		}, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create valkey session store: %w", err)
		}
		return store, map[string]server.CheckFunc{"session_store": store.Ping}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store type: %s", cfg.Type)
	}
}

// redirectURL defaults to the callback on the local HTTP address.
func redirectURL(cfg ServeConfig) string {
	if cfg.Google.RedirectURL != "" {
		return cfg.Google.RedirectURL
	}
	addr := cfg.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + server.CallbackPath
}

func newRateLimiter(cfg RateLimitConfig) *server.RateLimiter {
	if cfg.PerSecond <= 0 {
		return nil
	}
	return server.NewRateLimiter(cfg.PerSecond, cfg.Burst, cfg.TrustProxy)
}

// loadServeEnvVars applies environment variables to every setting whose flag
// was not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, cfg *ServeConfig) {
	flags := cmd.Flags()

	envString := func(flag, env string, dst *string) {
		if !flags.Changed(flag) {
			if v := os.Getenv(env); v != "" {
				*dst = v
			}
		}
	}
	envBool := func(flag, env string, dst *bool) {
		if !flags.Changed(flag) {
			if v, err := strconv.ParseBool(os.Getenv(env)); err == nil {
				*dst = v
			}
		}
	}
	envDuration := func(flag, env string, dst *time.Duration) {
		if !flags.Changed(flag) {
			if v := os.Getenv(env); v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					*dst = d
				} else {
					slog.Warn("ignoring invalid duration", "env", env, "value", v)
				}
			}
		}
	}

	envString("http-addr", "HTTP_ADDR", &cfg.HTTPAddr)
	envString("mcp-transport", "MCP_TRANSPORT", &cfg.MCPTransport)
	envBool("mcp-read-only", "MCP_READ_ONLY", &cfg.MCPReadOnly)

	envString("llm-base-url", "LLM_BASE_URL", &cfg.LLM.BaseURL)
	envString("llm-api-key", "LLM_API_KEY", &cfg.LLM.APIKey)
	envString("llm-model", "LLM_MODEL", &cfg.LLM.Model)
	envDuration("llm-timeout", "LLM_TIMEOUT", &cfg.LLM.Timeout)

	envString("google-client-id", google.EnvClientID, &cfg.Google.ClientID)
	envString("google-client-secret", google.EnvClientSecret, &cfg.Google.ClientSecret)
	envString("google-redirect-url", google.EnvRedirectURL, &cfg.Google.RedirectURL)
	if !flags.Changed("google-scopes") {
		if scopes := parseCommaSeparatedList(os.Getenv("GOOGLE_SCOPES")); len(scopes) > 0 {
			cfg.Google.Scopes = scopes
		}
	}

	envString("session-store-type", "SESSION_STORE_TYPE", &cfg.Storage.Type)
	envDuration("session-ttl", "SESSION_TTL", &cfg.Storage.TTL)
	envString("valkey-url", "VALKEY_URL", &cfg.Storage.Valkey.URL)
	envString("valkey-password", "VALKEY_PASSWORD", &cfg.Storage.Valkey.Password)
	envBool("valkey-tls", "VALKEY_TLS_ENABLED", &cfg.Storage.Valkey.TLSEnabled)
	envString("valkey-key-prefix", "VALKEY_KEY_PREFIX", &cfg.Storage.Valkey.KeyPrefix)
	if !flags.Changed("valkey-db") {
		if dbStr := os.Getenv("VALKEY_DB"); dbStr != "" {
			if db, err := strconv.Atoi(dbStr); err == nil {
				cfg.Storage.Valkey.DB = db
			}
		}
	}

	envBool("metrics-enabled", "METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("metrics-addr", "METRICS_ADDR", &cfg.Metrics.Addr)

	if !flags.Changed("rate-limit") {
		if v, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT"), 64); err == nil {
			cfg.RateLimit.PerSecond = v
		}
	}
	if !flags.Changed("rate-limit-burst") {
		if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST")); err == nil {
			cfg.RateLimit.Burst = v
		}
	}
	envBool("trust-proxy", "TRUST_PROXY", &cfg.RateLimit.TrustProxy)
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
