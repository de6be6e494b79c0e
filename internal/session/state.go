package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/calassist/internal/calendar"
)

// State is everything remembered for one session between tool calls.
type State struct {
	// LastList holds the (event id, calendar id) pairs of the most recent
	// listing in display order. Index n refers to LastList[n-1].
	LastList []calendar.Ref `json:"last_list,omitempty"`
	// Snapshot holds the full records of the most recent listing.
	Snapshot []calendar.Event `json:"snapshot,omitempty"`

	PendingCreate *PendingCreate `json:"pending_create,omitempty"`
	PendingUpdate *PendingUpdate `json:"pending_update,omitempty"`
	PendingDelete *PendingDelete `json:"pending_delete,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PendingCreate is a drafted event awaiting confirmation.
type PendingCreate struct {
	CalendarID string        `json:"calendar_id"`
	Body       calendar.Body `json:"body"`
	// HasAttendees is set when the draft invites anyone, which requires a
	// notification decision before execution.
	HasAttendees bool `json:"has_attendees,omitempty"`
}

// PendingUpdate is a drafted patch awaiting confirmation.
type PendingUpdate struct {
	EventID    string          `json:"event_id"`
	CalendarID string          `json:"calendar_id"`
	Patch      calendar.Body   `json:"patch"`
	Before     *calendar.Event `json:"before,omitempty"`
	// NewAttendees is set when the patch invites someone who was not
	// invited before.
	NewAttendees bool `json:"new_attendees,omitempty"`
}

// Ref returns the event the patch applies to.
func (p PendingUpdate) Ref() calendar.Ref {
	return calendar.Ref{EventID: p.EventID, CalendarID: p.CalendarID}
}

// PendingDelete is a drafted deletion awaiting confirmation.
type PendingDelete struct {
	Targets []calendar.Ref   `json:"targets"`
	Items   []calendar.Event `json:"items,omitempty"`
}

// SetList replaces the cached listing.
func (s *State) SetList(events []calendar.Event) {
	s.LastList = make([]calendar.Ref, 0, len(events))
	for _, e := range events {
		s.LastList = append(s.LastList, e.Ref())
	}
	s.Snapshot = append([]calendar.Event(nil), events...)
}

// ClearPending empties every pending slot.
func (s *State) ClearPending() {
	s.PendingCreate = nil
	s.PendingUpdate = nil
	s.PendingDelete = nil
}

// IsZero reports whether the state carries nothing worth persisting.
func (s *State) IsZero() bool {
	return len(s.LastList) == 0 && len(s.Snapshot) == 0 &&
		s.PendingCreate == nil && s.PendingUpdate == nil && s.PendingDelete == nil
}

// refAt returns the pair at 1-based position idx.
func (s *State) refAt(idx int) (calendar.Ref, bool) {
	if idx < 1 || idx > len(s.LastList) {
		return calendar.Ref{}, false
	}
	return s.LastList[idx-1], true
}

// calendarFor returns the calendar id cached for eventID.
func (s *State) calendarFor(eventID string) (string, bool) {
	for _, ref := range s.LastList {
		if ref.EventID == eventID {
			return ref.CalendarID, true
		}
	}
	for _, e := range s.Snapshot {
		if e.ID == eventID {
			return e.Ref().CalendarID, true
		}
	}
	return "", false
}

// snapshotItem returns the cached record for the event. An empty calendarID
// matches any calendar.
func (s *State) snapshotItem(eventID, calendarID string) (*calendar.Event, bool) {
	for i := range s.Snapshot {
		e := s.Snapshot[i]
		if e.ID != eventID {
			continue
		}
		if calendarID != "" && !strings.EqualFold(e.Ref().CalendarID, calendarID) {
			continue
		}
		return &e, true
	}
	return nil, false
}

func encodeState(s *State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return &s, nil
}
