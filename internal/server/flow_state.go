package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLoginStateTTL bounds how long a login redirect stays valid.
const DefaultLoginStateTTL = 10 * time.Minute

var errUnknownState = errors.New("authorization state not found or expired")

type loginState struct {
	sessionID string
	expiresAt time.Time
}

// stateStore maps OAuth state parameters to the chat session that started
// the login. States are single use.
type stateStore struct {
	mu     sync.Mutex
	states map[string]loginState
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	if ttl <= 0 {
		ttl = DefaultLoginStateTTL
	}
	return &stateStore{
		states: make(map[string]loginState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// issue creates a state for sessionID and drops expired ones.
func (s *stateStore) issue(sessionID string) string {
	state := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.states {
		if now.After(v.expiresAt) {
			delete(s.states, k)
		}
	}
	s.states[state] = loginState{sessionID: sessionID, expiresAt: now.Add(s.ttl)}
	return state
}

// consume returns the session for state and forgets it.
func (s *stateStore) consume(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.states[state]
	if !ok {
		return "", errUnknownState
	}
	delete(s.states, state)
	if s.now().After(v.expiresAt) {
		return "", errUnknownState
	}
	return v.sessionID, nil
}

func (s *stateStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
