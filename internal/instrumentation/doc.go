// Package instrumentation provides OpenTelemetry instrumentation for calassist.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, calendar API calls, LLM calls and tool dispatch
//   - Distributed tracing for chat turns, tool dispatch and outbound calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//   - Structured audit logging of every tool invocation
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of chat sessions with cached state
//
// Calendar Metrics:
//   - calendar_api_operations_total: Counter of provider operations by operation and status
//   - calendar_api_operation_duration_seconds: Histogram of provider operation durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of OAuth authentication events by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Tool and Executor Metrics:
//   - tool_invocations_total / tool_duration_seconds: tool dispatch by tool and status
//   - llm_requests_total / llm_request_duration_seconds: chat completion calls
//   - executor_turns_total: chat turns by terminal outcome
//   - executor_iterations: LLM rounds used per chat turn
//   - session_store_operations_total: session store reads and writes by backend
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calassist)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordCalendarOperation(ctx, instrumentation.OperationList, "success", time.Since(start))
//	recorder.RecordToolInvocation(ctx, "delete_event", "success", time.Since(start))
package instrumentation
