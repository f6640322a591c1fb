package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lease.
var ErrLockHeld = errors.New("lock is held by another process")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a single-holder lock stored in Redis under one key with a TTL.
type Lease struct {
	rdb   *redis.Client
	key   string
	token string
}

// AcquireLease takes key for ttl. The TTL bounds how long a crashed holder blocks others.
func AcquireLease(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{rdb: rdb, key: key, token: token}, nil
}

// Release drops the lease only if this holder still owns it.
func (l *Lease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
