package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when the lock is still held after the wait window.
var ErrLockNotAcquired = errors.New("lock not acquired")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TeamLocker serializes round-robin selection per team so two concurrent
// auto-assignments cannot both observe the same open-ticket counts.
type TeamLocker struct {
	client   *redis.Client
	keyFn    func(parts ...string) string
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// NewTeamLocker builds a locker. A nil client yields a locker whose Lock is a no-op.
func NewTeamLocker(r *Redis, ttl time.Duration) *TeamLocker {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &TeamLocker{client: client, keyFn: r.Key, ttl: ttl, wait: ttl, interval: 25 * time.Millisecond}
}

// Lock acquires the team lock and returns its release func.
func (l *TeamLocker) Lock(ctx context.Context, teamID string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}

	key := l.keyFn("lock", "team", teamID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire team lock: %w", err)
		}
		if ok {
			return func() {
				// release on a fresh context so a cancelled request still frees the key
				_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}
}
