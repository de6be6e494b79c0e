package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/calassist/internal/instrumentation"
)

// ErrNotFound is returned by Store.Get when a session has no saved state or
// its state has expired.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL is how long idle session state is kept.
const DefaultTTL = 24 * time.Hour

// Store persists session State keyed by session id.
type Store interface {
	// Get returns a private copy of the saved state, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*State, error)
	// Save replaces the saved state and resets its expiry.
	Save(ctx context.Context, sessionID string, state *State) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
	// Close releases background resources.
	Close() error
}

// Load returns the saved state for sessionID, or a fresh State when none
// exists.
func Load(ctx context.Context, store Store, sessionID string) (*State, error) {
	state, err := store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return &State{}, nil
	}
	return state, err
}

type storeOptions struct {
	ttl     time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures a Store.
type Option func(*storeOptions)

// WithTTL sets how long idle state is kept. Non-positive values keep the
// default.
func WithTTL(ttl time.Duration) Option {
	return func(o *storeOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records store operations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *storeOptions) { o.metrics = m }
}

func newStoreOptions(opts []Option) storeOptions {
	o := storeOptions{ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o storeOptions) record(ctx context.Context, backend, operation string, err error) {
	status := instrumentation.StatusSuccess
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = instrumentation.StatusError
	}
	o.metrics.RecordSessionStoreOperation(ctx, backend, operation, status)
}
