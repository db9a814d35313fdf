package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript drops the key only while it still holds the lease token, so
// an expired lease never frees someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

// Locker hands out single-holder leases on redis keys.
type Locker struct {
	client redis.Cmdable
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// Lease is a held lock. A nil Lease releases as a no-op.
type Lease struct {
	client redis.Scripter
	key    string
	token  string
}

// Acquire tries once and never waits. ok is false when another holder has
// the key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (lease *Lease, ok bool, err error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("lock client not configured")
	}
	if key == "" || ttl <= 0 {
		return nil, false, errors.New("lock key and ttl are required")
	}

	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return &Lease{client: l.client, key: key, token: token}, true, nil
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
