package session

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// DefaultKeyPrefix namespaces session keys in Valkey.
const DefaultKeyPrefix = "calassist:session:"

// ValkeyConfig holds the connection settings for ValkeyStore.
type ValkeyConfig struct {
	// Addr is the host:port of the Valkey server.
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
	KeyPrefix  string
}

// ValkeyStore keeps session state in Valkey with key expiry.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	opts   storeOptions
}

var _ Store = (*ValkeyStore)(nil)

// NewValkeyStore connects to Valkey.
func NewValkeyStore(cfg ValkeyConfig, opts ...Option) (*ValkeyStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	clientOpt := valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLSEnabled {
		clientOpt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(clientOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return NewValkeyStoreWithClient(client, cfg.KeyPrefix, opts...), nil
}

// NewValkeyStoreWithClient wraps an existing client.
func NewValkeyStoreWithClient(client valkey.Client, keyPrefix string, opts ...Option) *ValkeyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &ValkeyStore{
		client: client,
		prefix: keyPrefix,
		opts:   newStoreOptions(opts),
	}
}

func (s *ValkeyStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get returns the session state.
func (s *ValkeyStore) Get(ctx context.Context, sessionID string) (_ *State, err error) {
	defer func() { s.opts.record(ctx, instrumentation.BackendValkey, "get", err) }()

	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(sessionID)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	return decodeState(data)
}

// Save writes the state and resets its expiry.
func (s *ValkeyStore) Save(ctx context.Context, sessionID string, state *State) (err error) {
	defer func() { s.opts.record(ctx, instrumentation.BackendValkey, "save", err) }()

	data, err := encodeState(state)
	if err != nil {
		return err
	}

	cmd := s.client.B().Set().Key(s.key(sessionID)).Value(string(data)).ExSeconds(int64(s.opts.ttl.Seconds())).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		s.opts.logger.Warn("failed to save session state",
			logging.Session(sessionID),
			logging.Err(err))
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *ValkeyStore) Delete(ctx context.Context, sessionID string) (err error) {
	defer func() { s.opts.record(ctx, instrumentation.BackendValkey, "delete", err) }()

	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(sessionID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness checks.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey ping failed: %w", err)
	}
	return nil
}

// Close closes the client connection.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
