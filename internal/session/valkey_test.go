package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/calendar"
)

// TestValkeyStore runs against a live server when VALKEY_TEST_ADDR is set.
func TestValkeyStore(t *testing.T) {
	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDR not set")
	}

	store, err := NewValkeyStore(ValkeyConfig{Addr: addr, KeyPrefix: "calassist-test:"}, WithTTL(time.Minute))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	sessionID := uuid.New().String()
	_, err = store.Get(ctx, sessionID)
	assert.ErrorIs(t, err, ErrNotFound)

	state := &State{}
	state.SetList([]calendar.Event{{ID: "e1", CalendarID: "team"}})
	require.NoError(t, store.Save(ctx, sessionID, state))

	got, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []calendar.Ref{{EventID: "e1", CalendarID: "team"}}, got.LastList)

	require.NoError(t, store.Delete(ctx, sessionID))
	_, err = store.Get(ctx, sessionID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewValkeyStore_RequiresAddr(t *testing.T) {
	_, err := NewValkeyStore(ValkeyConfig{})
	assert.Error(t, err)
}
