package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), 300*time.Second)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestSeenFirstDelivery(t *testing.T) {
	store, _ := newTestStore(t)

	seen, err := store.Seen(context.Background(), "report", "req-1", "sig-a")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeenDuplicateDelivery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Seen(ctx, "report", "req-1", "sig-a")
	require.NoError(t, err)

	seen, err := store.Seen(ctx, "report", "req-1", "sig-a")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSeenDistinguishesKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Seen(ctx, "report", "req-1", "sig-a")
	require.NoError(t, err)

	// Different signature: a re-signed message is a new delivery
	seen, err := store.Seen(ctx, "report", "req-1", "sig-b")
	require.NoError(t, err)
	assert.False(t, seen)

	// Different message type with the same correlation id
	seen, err = store.Seen(ctx, "publish", "req-1", "sig-a")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeenExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Seen(ctx, "report", "req-1", "sig-a")
	require.NoError(t, err)

	// Past twice the freshness window the key is gone
	mr.FastForward(601 * time.Second)

	seen, err := store.Seen(ctx, "report", "req-1", "sig-a")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDisabledNeverSeen(t *testing.T) {
	var store Disabled

	for i := 0; i < 3; i++ {
		seen, err := store.Seen(context.Background(), "report", "req-1", "sig-a")
		require.NoError(t, err)
		assert.False(t, seen)
	}
}
