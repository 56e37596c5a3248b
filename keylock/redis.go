package keylock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL = 10 * time.Second
	defaultRetry   = 20 * time.Millisecond
)

// ErrNotHeld is returned by Release when the lock expired (or was taken over)
// before it was released. The protected sequence may have overlapped another.
var ErrNotHeld = errors.New("keylock: lock not held at release")

// compare-and-delete so an expired holder never frees someone else's lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis shares locks across processes with SET NX PX. Each acquisition
// stores a random token; only the holder of that token can release.
// Locks expire after TTL so a crashed holder cannot block a key forever.
type Redis struct {
	rdb         redis.UniversalClient
	ns          string        // logical namespace; should match relcache Options.Namespace
	ttl         time.Duration // lock lease
	retry       time.Duration // poll interval while waiting
	closeClient bool
}

var _ Locker = (*Redis)(nil)

type RedisConfig struct {
	Client      redis.UniversalClient
	Namespace   string
	TTL         time.Duration // 0 => 10s
	Retry       time.Duration // 0 => 20ms
	CloseClient bool          // set true only if the locker exclusively owns the client
}

func NewRedis(cfg RedisConfig) *Redis {
	r := &Redis{
		rdb:         cfg.Client,
		ns:          cfg.Namespace,
		ttl:         cfg.TTL,
		retry:       cfg.Retry,
		closeClient: cfg.CloseClient,
	}
	if r.ttl <= 0 {
		r.ttl = defaultLockTTL
	}
	if r.retry <= 0 {
		r.retry = defaultRetry
	}
	return r
}

func (r *Redis) key(k string) string { return "lock:" + r.ns + ":" + k }

func (r *Redis) Lock(ctx context.Context, key string) (Release, error) {
	k := r.key(key)
	token := uuid.NewString()

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.rdb, []string{k}, token).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}

// Close closes the underlying Redis client when the locker owns it.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		return r.rdb.Close()
	}
	return nil
}
