package calendar_tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/calassist/internal/session"
)

// eventID is an event id that the model may send as a string or a number.
type eventID string

func (e *eventID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = eventID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*e = eventID(n.String())
	return nil
}

// target selects one event by index, id or filter. Index takes precedence
// over id, and id over where.
type target struct {
	ID    eventID        `json:"id"`
	Index int            `json:"index"`
	Where *session.Where `json:"where"`
}

func (t target) isEmpty() bool {
	return t.ID == "" && t.Index == 0 && t.Where == nil
}

type listArgs struct {
	session.Where
	SessionID string `json:"session_id"`
}

type createArgs struct {
	Title           string        `json:"title"`
	Start           string        `json:"start"`
	End             string        `json:"end"`
	Description     string        `json:"description"`
	Location        string        `json:"location"`
	Attendees       *attendeeList `json:"attendees"`
	NotifyAttendees *bool         `json:"notify_attendees"`
	Confirmed       bool          `json:"confirmed"`
	SessionID       string        `json:"session_id"`
}

type patchArgs struct {
	Title       *string       `json:"title"`
	Start       *string       `json:"start"`
	End         *string       `json:"end"`
	Description *string       `json:"description"`
	Location    *string       `json:"location"`
	Attendees   *attendeeList `json:"attendees"`
}

type updateArgs struct {
	target
	Patch           patchArgs `json:"patch"`
	ApplyToAll      bool      `json:"apply_to_all"`
	NotifyAttendees *bool     `json:"notify_attendees"`
	Confirmed       bool      `json:"confirmed"`
	SessionID       string    `json:"session_id"`
}

type deleteArgs struct {
	target
	IDs        []eventID `json:"ids"`
	Indexes    []int     `json:"indexes"`
	ApplyToAll bool      `json:"apply_to_all"`
	Confirmed  bool      `json:"confirmed"`
	SessionID  string    `json:"session_id"`
}

func (a deleteArgs) hasTargets() bool {
	return !a.target.isEmpty() || len(a.IDs) > 0 || len(a.Indexes) > 0
}

type detailArgs struct {
	target
	SessionID string `json:"session_id"`
}

type detailByIndexArgs struct {
	Index     int    `json:"index"`
	SessionID string `json:"session_id"`
}
