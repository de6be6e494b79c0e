package calendar_tools

import (
	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/tools/batch"
)

// Error kinds reported in Action.Error for local validation and lookup
// failures. Provider failures carry the provider message instead.
const (
	ErrInvalidArguments = "invalid_arguments"
	ErrInvalidAttendees = "invalid_attendees"
	ErrInvalidStart     = "invalid_start"
	ErrInvalidEnd       = "invalid_end"
	ErrNotFound         = "not_found"
	ErrIndexOutOfRange  = "index_out_of_range"
	ErrUnknownTool      = "unknown_tool"
)

// Action kinds, as returned by Action.Kind.
const (
	KindList             = "list"
	KindDetail           = "detail"
	KindCreated          = "created"
	KindUpdated          = "updated"
	KindDeleted          = "deleted"
	KindBatch            = "batch"
	KindNeedConfirm      = "need_confirm"
	KindNeedNotifyChoice = "need_notify_choice"
	KindNeedIndex        = "need_index"
	KindError            = "error"
)

// Result is the outcome of one tool call.
type Result struct {
	Actions []Action `json:"actions"`
}

// Action is one structured outcome. Only the fields relevant to its kind are
// set.
type Action struct {
	OK      *bool    `json:"ok,omitempty"`
	Error   string   `json:"error,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
	Details []string `json:"details,omitempty"`

	NeedConfirm      bool `json:"need_confirm,omitempty"`
	NeedNotifyChoice bool `json:"need_notify_choice,omitempty"`
	NeedIndex        bool `json:"need_index,omitempty"`

	Preview       *calendar.Body     `json:"preview,omitempty"`
	PreviewPatch  *calendar.Body     `json:"preview_patch,omitempty"`
	PreviewDelete []calendar.Ref     `json:"preview_delete,omitempty"`
	PreviewItems  []calendar.View    `json:"preview_items,omitempty"`
	Before        *calendar.View     `json:"before,omitempty"`
	PendingCreate *calendar.Body     `json:"pending_create,omitempty"`
	PendingUpdate *PendingUpdateView `json:"pending_update,omitempty"`
	Candidates    []calendar.View    `json:"candidates,omitempty"`

	List    *[]calendar.View   `json:"list,omitempty"`
	Detail  *calendar.View     `json:"detail,omitempty"`
	Created *calendar.View     `json:"created,omitempty"`
	Updated *calendar.View     `json:"updated,omitempty"`
	Deleted *calendar.View     `json:"deleted,omitempty"`
	Batch   *batch.BatchResult `json:"batch,omitempty"`
}

// PendingUpdateView shows a stored patch awaiting a notification choice.
type PendingUpdateView struct {
	EventID    string        `json:"event_id"`
	CalendarID string        `json:"calendar_id"`
	Body       calendar.Body `json:"body"`
}

// Kind classifies the action. Signals that hand control back to the user
// take precedence over everything else.
func (a Action) Kind() string {
	switch {
	case a.NeedConfirm:
		return KindNeedConfirm
	case a.NeedNotifyChoice:
		return KindNeedNotifyChoice
	case a.NeedIndex:
		return KindNeedIndex
	case a.Created != nil:
		return KindCreated
	case a.Updated != nil:
		return KindUpdated
	case a.Deleted != nil:
		return KindDeleted
	case a.Batch != nil:
		return KindBatch
	case a.List != nil:
		return KindList
	case a.Detail != nil:
		return KindDetail
	}
	return KindError
}

// NeedsUser reports whether any action waits for a human decision.
func (r Result) NeedsUser() bool {
	for _, a := range r.Actions {
		if a.NeedConfirm || a.NeedNotifyChoice || a.NeedIndex {
			return true
		}
	}
	return false
}

// Completed reports whether the result contains a terminal success action.
func (r Result) Completed() bool {
	for _, a := range r.Actions {
		switch a.Kind() {
		case KindList, KindDetail, KindCreated, KindUpdated, KindDeleted:
			return true
		case KindBatch:
			if a.Batch.Successful > 0 {
				return true
			}
		}
	}
	return false
}

// Mutated reports whether calendar data was changed.
func (r Result) Mutated() bool {
	for _, a := range r.Actions {
		if a.Created != nil || a.Updated != nil || a.Deleted != nil {
			return true
		}
		if a.Batch != nil && a.Batch.Successful > 0 {
			return true
		}
	}
	return false
}

// Failed reports whether any action is an error.
func (r Result) Failed() bool {
	for _, a := range r.Actions {
		if a.Kind() == KindError {
			return true
		}
	}
	return false
}

// Outcome is the kind of the first action, used as a metrics and audit label.
func (r Result) Outcome() string {
	if len(r.Actions) == 0 {
		return KindError
	}
	return r.Actions[0].Kind()
}

func okValue(ok bool) *bool {
	return &ok
}

func single(a Action) []Action {
	return []Action{a}
}

func errorAction(kind string) Action {
	return Action{OK: okValue(false), Error: kind}
}

func providerError(err error) Action {
	return Action{OK: okValue(false), Error: err.Error()}
}

func listAction(events []calendar.Event) Action {
	views := make([]calendar.View, 0, len(events))
	for i, e := range events {
		v := e.View()
		v.Idx = i + 1
		views = append(views, v)
	}
	return Action{List: &views}
}

func views(events []calendar.Event) []calendar.View {
	out := make([]calendar.View, 0, len(events))
	for _, e := range events {
		out = append(out, e.View())
	}
	return out
}

func viewOf(e *calendar.Event) *calendar.View {
	if e == nil {
		return nil
	}
	v := e.View()
	return &v
}
