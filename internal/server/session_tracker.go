package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/calassist/internal/instrumentation"
)

// DefaultSessionTimeout is how long a chat session counts as active after
// its last request.
const DefaultSessionTimeout = 24 * time.Hour

// SessionTracker records when chat sessions were last used and keeps the
// active-session gauge in step.
type SessionTracker struct {
	sessions       map[string]time.Time // Maps session ID to last access
	mu             sync.Mutex
	cleanupTicker  *time.Ticker
	cleanupDone    chan struct{}
	stopOnce       sync.Once
	sessionTimeout time.Duration
	metrics        *instrumentation.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

// NewSessionTracker creates a tracker and starts its cleanup goroutine.
// metrics and logger may be nil.
func NewSessionTracker(timeout time.Duration, metrics *instrumentation.Metrics, logger *slog.Logger) *SessionTracker {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &SessionTracker{
		sessions:       make(map[string]time.Time),
		cleanupTicker:  time.NewTicker(10 * time.Minute),
		cleanupDone:    make(chan struct{}),
		sessionTimeout: timeout,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}

	go t.cleanupLoop()

	return t
}

// Touch marks sessionID as used now.
func (t *SessionTracker) Touch(ctx context.Context, sessionID string) {
	t.mu.Lock()
	_, known := t.sessions[sessionID]
	t.sessions[sessionID] = t.now()
	t.mu.Unlock()

	if !known {
		t.metrics.IncrementActiveSessions(ctx)
	}
}

// Remove forgets sessionID.
func (t *SessionTracker) Remove(ctx context.Context, sessionID string) {
	t.mu.Lock()
	_, known := t.sessions[sessionID]
	delete(t.sessions, sessionID)
	t.mu.Unlock()

	if known {
		t.metrics.DecrementActiveSessions(ctx)
	}
}

// Count returns the number of tracked sessions.
func (t *SessionTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// expire removes sessions idle for longer than the timeout and returns how
// many were removed.
func (t *SessionTracker) expire(ctx context.Context) int {
	t.mu.Lock()
	now := t.now()
	expired := 0
	for id, last := range t.sessions {
		if now.Sub(last) > t.sessionTimeout {
			delete(t.sessions, id)
			expired++
		}
	}
	t.mu.Unlock()

	for i := 0; i < expired; i++ {
		t.metrics.DecrementActiveSessions(ctx)
	}
	return expired
}

func (t *SessionTracker) cleanupLoop() {
	for {
		select {
		case <-t.cleanupTicker.C:
			if n := t.expire(context.Background()); n > 0 {
				t.logger.Info("Cleaned up expired sessions", "count", n)
			}
		case <-t.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine
func (t *SessionTracker) Stop() {
	t.stopOnce.Do(func() {
		t.cleanupTicker.Stop()
		close(t.cleanupDone)
	})
}
