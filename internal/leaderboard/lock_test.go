package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRebuildLock(t *testing.T) {
	ctx := context.Background()
	rs := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: rs.Addr()})
	t.Cleanup(func() { rdb.Close() })

	first, ok, err := acquireLock(ctx, rdb, "lb:lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = acquireLock(ctx, rdb, "lb:lock", time.Second)
	require.NoError(t, err)
	require.False(t, ok, "lock is exclusive")

	rs.FastForward(2 * time.Second)
	second, ok, err := acquireLock(ctx, rdb, "lb:lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expired lock can be taken over")

	held, err := first.release(ctx)
	require.NoError(t, err)
	require.False(t, held)
	require.True(t, rs.Exists("lb:lock"), "a stale holder must not release the new holder's lock")

	held, err = second.release(ctx)
	require.NoError(t, err)
	require.True(t, held)
	require.False(t, rs.Exists("lb:lock"))
}
