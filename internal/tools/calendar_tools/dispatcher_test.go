package calendar_tools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/session"
)

type auditOnly struct {
	audit *instrumentation.AuditLogger
}

func (a auditOnly) Metrics() *instrumentation.Metrics { return nil }
func (a auditOnly) AuditLogger() *instrumentation.AuditLogger { return a.audit }

func TestDispatch_UnknownTool(t *testing.T) {
	h := newHarness(t)

	a := h.one(t, "send_email", `{}`)

	assert.Equal(t, ErrUnknownTool, a.Error)
	assert.Equal(t, []string{"send_email"}, a.Details)
}

func TestDispatch_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
	}{
		{name: "unknown property", tool: ToolListEvents, args: `{"form":"2025-08-25"}`},
		{name: "missing required", tool: ToolCreateEvent, args: `{"title":"x"}`},
		{name: "wrong type", tool: ToolCreateEvent, args: `{"title":"x","start":"2025-08-25","confirmed":"yes"}`},
		{name: "index below one", tool: ToolGetEventDetailByIndex, args: `{"index":0}`},
		{name: "nested unknown filter", tool: ToolListEvents, args: `{"filters":{"title_has":["x"]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			a := h.one(t, tt.tool, tt.args)

			assert.Equal(t, ErrInvalidArguments, a.Error)
			assert.NotEmpty(t, a.Details)
			assert.Empty(t, h.provider.lists)
			assert.Equal(t, 0, h.provider.mutations())
		})
	}
}

func TestDispatch_LenientArguments(t *testing.T) {
	h := newHarness(t)

	for _, args := range []string{``, `null`, `[]`, `"text"`, `{"from":null,"filters":null}`} {
		res := h.call(t, ToolListEvents, args)
		require.Len(t, res.Actions, 1, "args %q", args)
		assert.NotNil(t, res.Actions[0].List, "args %q", args)
	}
}

func TestDispatch_MalformedJSON(t *testing.T) {
	h := newHarness(t)

	a := h.one(t, ToolListEvents, `{"from":`)

	assert.Equal(t, ErrInvalidArguments, a.Error)
}

func TestDispatch_InjectsSession(t *testing.T) {
	provider := newFakeProvider(fixture()...)
	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	d := NewDispatcher(provider, store)
	ctx := context.Background()

	// The caller's session wins over one supplied by the model.
	d.Dispatch(ctx, ToolListEvents, "real", json.RawMessage(`{"session_id":"spoofed"}`))
	assert.Equal(t, 1, store.Len())
	_, err := store.Get(ctx, "real")
	require.NoError(t, err)

	// Without a caller session the argument is used.
	d.Dispatch(ctx, ToolListEvents, "", json.RawMessage(`{"session_id":"from-args"}`))
	_, err = store.Get(ctx, "from-args")
	require.NoError(t, err)
}

func TestDispatch_AuditsEveryCall(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	provider := newFakeProvider(fixture()...)
	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	d := NewDispatcher(provider, store, WithInstrumentation(auditOnly{audit: audit}))
	ctx := context.Background()

	d.Dispatch(ctx, ToolListEvents, testSession, nil)
	d.Dispatch(ctx, ToolCreateEvent, testSession, json.RawMessage(`{"title":"x","start":"bad"}`))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "tool_executed", first["msg"])
	assert.Equal(t, "list_events", first["tool"])
	assert.Equal(t, "list", first["outcome"])

	assert.Equal(t, "tool_failed", second["msg"])
	assert.Equal(t, "create_event", second["tool"])
	assert.Equal(t, true, second["mutating"])
	assert.NotContains(t, buf.String(), testSession)
}

func TestNormalizeArgs(t *testing.T) {
	raw, sid, err := normalizeArgs(json.RawMessage(`{"where":{"from":null,"to":"2025-08-25"},"ids":[1,null],"index":2}`), "s")
	require.NoError(t, err)
	assert.Equal(t, "s", sid)
	assert.JSONEq(t, `{"where":{"to":"2025-08-25"},"ids":[1,null],"index":2,"session_id":"s"}`, string(raw))
}

func TestSendUpdates(t *testing.T) {
	yes, no := true, false
	assert.Equal(t, "", string(sendUpdates(false, &yes)))
	assert.Equal(t, "all", string(sendUpdates(true, &yes)))
	assert.Equal(t, "none", string(sendUpdates(true, &no)))
	assert.Equal(t, "none", string(sendUpdates(true, nil)))
}
