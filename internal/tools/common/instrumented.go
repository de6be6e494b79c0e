package common

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// Instrumentation supplies the optional metrics and audit sinks for tool
// dispatch. Both accessors may return nil.
type Instrumentation interface {
	Metrics() *instrumentation.Metrics
	AuditLogger() *instrumentation.AuditLogger
}

// Invocation tracks one tool dispatch for metrics, tracing and audit logging.
//
// Usage:
//
//	ctx, inv := common.StartInvocation(ctx, inst, "delete_event", sessionID, true)
//	result := handle(ctx)
//	inv.Finish(result.Outcome(), result.Failed(), nil)
type Invocation struct {
	ctx     context.Context
	tool    string
	start   time.Time
	span    trace.Span
	record  *instrumentation.ToolInvocation
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// StartInvocation opens a span for the tool call and starts timing it.
// inst may be nil.
func StartInvocation(ctx context.Context, inst Instrumentation, toolName, sessionID string, mutating bool) (context.Context, *Invocation) {
	label := instrumentation.ToolLabel(toolName)

	ctx, span := instrumentation.StartToolSpan(ctx, label,
		instrumentation.NewSpanAttributeBuilder().
			WithSession(logging.SessionHash(sessionID)).
			Build()...)

	inv := &Invocation{
		ctx:   ctx,
		tool:  label,
		start: time.Now(),
		span:  span,
		record: instrumentation.NewToolInvocation(toolName).
			WithSession(sessionID).
			WithMutating(mutating).
			WithSpanContext(ctx),
	}
	if inst != nil {
		inv.metrics = inst.Metrics()
		inv.audit = inst.AuditLogger()
	}
	return ctx, inv
}

// Finish ends the span, records the invocation metric and writes the audit
// entry. failed marks domain failures such as validation errors; err is an
// unexpected handler error.
func (i *Invocation) Finish(outcome string, failed bool, err error) {
	defer i.span.End()

	i.record.WithOutcome(outcome)

	status := instrumentation.StatusSuccess
	switch {
	case err != nil:
		status = instrumentation.StatusError
		i.record.CompleteWithError(err)
		instrumentation.SetSpanError(i.span, err)
	case failed:
		status = instrumentation.StatusError
		i.record.Complete(false, nil)
		instrumentation.AddSpanEvent(i.span, "tool_failed")
	default:
		i.record.CompleteSuccess()
		instrumentation.SetSpanSuccess(i.span)
	}

	i.metrics.RecordToolInvocation(i.ctx, i.tool, status, time.Since(i.start))
	i.audit.LogToolInvocation(i.record)
}
