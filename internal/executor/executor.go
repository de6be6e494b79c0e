package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/tools/calendar_tools"
)

// MaxIterations bounds the number of model rounds in one turn.
const MaxIterations = 10

// Fixed replies.
const (
	// IterationCapReply is returned when MaxIterations rounds did not finish the request.
	IterationCapReply = "This request took too many steps to finish. Please split it into smaller requests."
	// SummaryFallbackReply is returned when the summary call fails.
	SummaryFallbackReply = "The requested calendar operations have been processed."
)

// Dispatcher runs a single tool call.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, sessionID string, args json.RawMessage) calendar_tools.Result
}

// Turn is the outcome of one chat turn.
type Turn struct {
	Reply string
	// ToolResult holds every action of the turn in dispatch order. It is nil
	// when the turn ended without a tool-driven terminal state.
	ToolResult *calendar_tools.Result
	// Outcome is one of the instrumentation.Outcome* constants.
	Outcome    string
	Iterations int
}

// Executor drives the tool-calling loop.
type Executor struct {
	chat          llm.Chatter
	tools         Dispatcher
	specs         []llm.Tool
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
	now           func() time.Time
	maxIterations int
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records every turn on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithClock overrides the clock used for the system prompt.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithMaxIterations lowers or raises the round limit. Values below one are ignored.
func WithMaxIterations(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// New creates an Executor that offers specs to the model and runs the calls
// it makes through tools.
func New(chat llm.Chatter, tools Dispatcher, specs []calendar_tools.ToolSpec, opts ...Option) *Executor {
	e := &Executor{
		chat:          chat,
		tools:         tools,
		specs:         ToolDefinitions(specs),
		logger:        slog.Default(),
		now:           time.Now,
		maxIterations: MaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ToolDefinitions converts the tool registry into function tools for the model.
func ToolDefinitions(specs []calendar_tools.ToolSpec) []llm.Tool {
	out := make([]llm.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, llm.NewTool(s.Name, s.Description, s.Parameters))
	}
	return out
}

// Messages builds the transcript for a new turn: the system prompt, the
// user and assistant entries of history, then userMessage.
func (e *Executor) Messages(history []llm.Message, userMessage string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.SystemMessage(SystemPrompt(e.now())))
	for _, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, llm.UserMessage(userMessage))
}

// Run executes one chat turn for sessionID. A returned error means the model
// could not be reached; tool failures are reported inside the turn.
func (e *Executor) Run(ctx context.Context, sessionID string, history []llm.Message, userMessage string) (turn *Turn, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "executor.turn",
		instrumentation.NewSpanAttributeBuilder().WithSession(logging.SessionHash(sessionID)).Build()...)
	logger := e.logger.With(logging.Session(sessionID))
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	transcript := e.Messages(history, userMessage)
	var actions []calendar_tools.Action

	defer func() {
		switch {
		case err != nil:
			instrumentation.SetSpanError(span, err)
			e.metrics.RecordExecutorTurn(ctx, instrumentation.OutcomeFailed, 0)
		case turn != nil:
			span.SetAttributes(attribute.String(instrumentation.SpanAttrOutcome, turn.Outcome))
			instrumentation.SetSpanSuccess(span)
			e.metrics.RecordExecutorTurn(ctx, turn.Outcome, turn.Iterations)
		}
		span.End()
	}()

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		resp, err := e.chat.Chat(ctx, transcript, e.specs)
		if err != nil {
			return nil, fmt.Errorf("failed to call language model in round %d: %w", iteration, err)
		}
		transcript = append(transcript, resp.Message)

		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			return &Turn{
				Reply:      strings.TrimSpace(resp.Message.Content),
				Outcome:    instrumentation.OutcomeReply,
				Iterations: iteration,
			}, nil
		}

		logger.Debug("executing tool calls", logging.Iteration(iteration), slog.Int("calls", len(calls)))
		instrumentation.AddSpanEvent(span, "tool_round",
			instrumentation.NewSpanAttributeBuilder().WithIteration(iteration).Build()...)

		needsUser, allCompleted, mutated := false, true, false
		for _, call := range calls {
			result := e.tools.Dispatch(ctx, call.Function.Name, sessionID, json.RawMessage(call.Function.Arguments))
			actions = append(actions, result.Actions...)
			transcript = append(transcript, llm.ToolMessage(call.ID, encodeResult(result)))

			if result.NeedsUser() {
				needsUser = true
			}
			if !result.Completed() {
				allCompleted = false
			}
			if result.Mutated() {
				mutated = true
				logger.Info("calendar changed", logging.Tool(call.Function.Name), logging.Iteration(iteration))
			}
		}

		// Read-only rounds always go back to the model so it can act on
		// what it just learned.
		if needsUser || (allCompleted && mutated) {
			outcome := instrumentation.OutcomeCompleted
			if needsUser {
				outcome = instrumentation.OutcomeAwaitingUser
			}
			return &Turn{
				Reply:      e.summarize(ctx, logger, transcript),
				ToolResult: &calendar_tools.Result{Actions: actions},
				Outcome:    outcome,
				Iterations: iteration,
			}, nil
		}
	}

	logger.Warn("iteration limit reached", logging.Iteration(e.maxIterations))
	return &Turn{
		Reply:      IterationCapReply,
		Outcome:    instrumentation.OutcomeIterationCap,
		Iterations: e.maxIterations,
	}, nil
}

// summarize asks the model for a user-facing summary of the transcript
// without offering tools.
func (e *Executor) summarize(ctx context.Context, logger *slog.Logger, transcript []llm.Message) string {
	msgs := make([]llm.Message, len(transcript), len(transcript)+1)
	copy(msgs, transcript)
	msgs = append(msgs, llm.UserMessage(summaryInstruction))

	resp, err := e.chat.Chat(ctx, msgs, nil)
	if err != nil {
		logger.Error("failed to generate summary", logging.Err(err))
		return SummaryFallbackReply
	}
	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return SummaryFallbackReply
	}
	return reply
}

func encodeResult(result calendar_tools.Result) string {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"actions":[{"ok":false,"error":%q}]}`, err.Error())
	}
	return string(b)
}
