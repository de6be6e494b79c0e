package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls the OpenTelemetry meter and tracer providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// InstanceID identifies this replica. Empty means the hostname.
	InstanceID string
	// Namespace is the Kubernetes namespace, when running in a cluster.
	Namespace string

	// Enabled turns metrics and tracing on. A disabled provider hands out a
	// Metrics value whose recorders do nothing.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string
	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio of sampled traces.
	TraceSamplingRate float64

	// DetailedLabels adds the model name to LLM request metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the tool audit log.
type AuditLoggingConfig struct {
	Enabled bool
	// IncludePII logs session ids in clear text instead of hashed.
	IncludePII bool
}

// DefaultConfig reads the instrumentation settings from the environment.
//
//	INSTRUMENTATION_ENABLED       default true
//	METRICS_EXPORTER              default prometheus
//	TRACING_EXPORTER              default none
//	OTEL_SERVICE_NAME             default calassist
//	OTEL_SERVICE_INSTANCE_ID      default hostname
//	OTEL_EXPORTER_OTLP_ENDPOINT
//	OTEL_EXPORTER_OTLP_INSECURE   default false
//	OTEL_TRACES_SAMPLER_ARG       default 0.1
//	METRICS_DETAILED_LABELS       default false
//	AUDIT_LOGGING_ENABLED         default true
//	AUDIT_LOGGING_INCLUDE_PII     default false
//	POD_NAMESPACE
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "calassist"),
		ServiceVersion:    "unknown",
		InstanceID:        envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Namespace:         envString("POD_NAMESPACE", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envBool("AUDIT_LOGGING_ENABLED", true),
			IncludePII: envBool("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate checks exporter names, the sampling rate and that OTLP exporters
// have an endpoint.
func (c Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool and envFloat keep the fallback when the variable does not parse.
func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// OAuth result values
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	// Service names
	ServiceCalendar = "calendar"
	ServiceLLM      = "llm"

	// Executor outcomes
	OutcomeReply        = "reply"
	OutcomeAwaitingUser = "awaiting_user"
	OutcomeCompleted    = "completed"
	OutcomeIterationCap = "iteration_cap"
	OutcomeFailed       = "failed"

	// Session store backends
	BackendMemory = "memory"
	BackendValkey = "valkey"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
