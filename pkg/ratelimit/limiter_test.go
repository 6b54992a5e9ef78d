package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreAllowsUpToMax(t *testing.T) {
	store := NewStore(time.Minute)
	cfg := Config{MaxRequests: 5, Window: 15 * time.Minute}
	key := Key("submit", "user-1")

	for i := 0; i < 5; i++ {
		res := store.Check(key, cfg)
		require.True(t, res.Allowed, "request %d should be allowed", i+1)
		require.Equal(t, 4-i, res.Remaining)
	}

	res := store.Check(key, cfg)
	require.False(t, res.Allowed)
	require.Zero(t, res.Remaining)
	require.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestStoreNewWindowAfterExpiry(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute, WithClock(func() time.Time { return now }))
	cfg := Config{MaxRequests: 2, Window: 15 * time.Minute}
	key := Key("submit", "user-1")

	require.True(t, store.Check(key, cfg).Allowed)
	require.True(t, store.Check(key, cfg).Allowed)
	require.False(t, store.Check(key, cfg).Allowed)

	now = now.Add(15*time.Minute + time.Second)
	res := store.Check(key, cfg)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.Remaining)
}

func TestStoreKeysAreIndependent(t *testing.T) {
	store := NewStore(time.Minute)
	cfg := Config{MaxRequests: 1, Window: time.Minute}

	require.True(t, store.Check(Key("submit", "a"), cfg).Allowed)
	require.True(t, store.Check(Key("submit", "b"), cfg).Allowed)
	require.False(t, store.Check(Key("submit", "a"), cfg).Allowed)
}

func TestStoreZeroConfigAllowsAll(t *testing.T) {
	store := NewStore(time.Minute)
	for i := 0; i < 100; i++ {
		require.True(t, store.Check("any", Config{}).Allowed)
	}
}

func TestStoreCleanupDropsExpiredEntries(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute, WithClock(func() time.Time { return now }))
	cfg := Config{MaxRequests: 3, Window: time.Minute}

	store.Check(Key("submit", "a"), cfg)
	store.Check(Key("submit", "b"), cfg)
	require.Equal(t, 2, store.Len())

	now = now.Add(2 * time.Minute)
	store.cleanup()
	require.Zero(t, store.Len())
}

func TestStoreReset(t *testing.T) {
	store := NewStore(time.Minute)
	cfg := Config{MaxRequests: 1, Window: time.Minute}
	key := Key("submit", "a")

	require.True(t, store.Check(key, cfg).Allowed)
	require.False(t, store.Check(key, cfg).Allowed)

	store.Reset(key)
	require.True(t, store.Check(key, cfg).Allowed)
}

func TestStoreStartStop(t *testing.T) {
	store := NewStore(10 * time.Millisecond)
	store.Start(context.Background())
	store.Start(context.Background()) // idempotent
	store.Stop()
	store.Stop()
}
