package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type rebuildLock struct {
	redis redis.UniversalClient
	key   string
	token string
}

// acquireLock returns false when another rebuilder holds key.
func acquireLock(ctx context.Context, rdb redis.UniversalClient, key string, ttl time.Duration) (*rebuildLock, bool, error) {
	l := &rebuildLock{redis: rdb, key: key, token: uuid.NewString()}
	ok, err := rdb.SetNX(ctx, key, l.token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	return l, true, nil
}

// release reports whether the lock was still ours when it was released.
func (l *rebuildLock) release(ctx context.Context) (bool, error) {
	n, err := releaseScript.Run(ctx, l.redis, []string{l.key}, l.token).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
