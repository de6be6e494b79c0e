package session

import (
	"context"
	"sync"
	"time"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// cleanupInterval is how often expired sessions are swept.
const cleanupInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps session state in process memory.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	opts    storeOptions
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store and starts its cleanup goroutine.
// Call Close to stop it.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		opts:    newStoreOptions(opts),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Get returns a copy of the session state.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*State, error) {
	s.mu.RLock()
	entry, exists := s.entries[sessionID]
	s.mu.RUnlock()

	if !exists || s.now().After(entry.expiresAt) {
		s.opts.record(ctx, instrumentation.BackendMemory, "get", ErrNotFound)
		return nil, ErrNotFound
	}

	state, err := decodeState(entry.data)
	s.opts.record(ctx, instrumentation.BackendMemory, "get", err)
	return state, err
}

// Save stores a copy of state.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, state *State) error {
	state.UpdatedAt = s.now()
	data, err := encodeState(state)
	if err != nil {
		s.opts.record(ctx, instrumentation.BackendMemory, "save", err)
		return err
	}

	s.mu.Lock()
	s.entries[sessionID] = memoryEntry{data: data, expiresAt: s.now().Add(s.opts.ttl)}
	s.mu.Unlock()

	s.opts.record(ctx, instrumentation.BackendMemory, "save", nil)
	return nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()

	s.opts.record(ctx, instrumentation.BackendMemory, "delete", nil)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet
// swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// cleanup periodically removes expired sessions
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

// cleanupExpired removes expired sessions
func (s *MemoryStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	deleted := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			deleted++
		}
	}

	if deleted > 0 {
		s.opts.logger.Debug("Cleaned up expired sessions",
			logging.Operation("session.cleanup"),
			"sessions_deleted", deleted,
		)
	}
}
