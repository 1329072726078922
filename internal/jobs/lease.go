package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease keeps a job from running on two replicas at once. Acquire reports
// false when another holder owns the job; release must be called once.
type Lease interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (release func(), ok bool, err error)
}

// NoopLease always grants the lease; used when Redis is not configured
type NoopLease struct{}

func (NoopLease) Acquire(ctx context.Context, job string, ttl time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

const leaseKeyPrefix = "prediction-frames:job:"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease implements Lease with SET NX PX and a compare-and-delete release
type RedisLease struct {
	client *redis.Client
}

func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client}
}

func (l *RedisLease) Acquire(ctx context.Context, job string, ttl time.Duration) (func(), bool, error) {
	key := leaseKeyPrefix + job
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client, []string{key}, token)
	}
	return release, true, nil
}
