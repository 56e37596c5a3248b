package relcache

import (
	"context"
	"fmt"

	c "github.com/unkn0wn-root/relcache/codec"
	"github.com/unkn0wn-root/relcache/keylock"
	pr "github.com/unkn0wn-root/relcache/provider"
)

const (
	nsEntity    = "entity"
	nsRelations = "rel"
)

type cache struct {
	ns       string
	provider pr.Provider // unscoped; owned and closed by the cache
	entities pr.Provider // <ns>:entity:
	codec    c.Codec[any]
	log      Logger
	hooks    Hooks
	locker   keylock.Locker
	enabled  bool

	rel  *relations
	scan *scanner
}

func newCache(opts Options) (*cache, error) {
	if opts.Provider == nil {
		return nil, ErrNilProvider
	}
	if opts.Namespace == "" {
		return nil, ErrNamespace
	}

	cc := &cache{
		ns:       opts.Namespace,
		provider: opts.Provider,
		entities: pr.Prefix(opts.Provider, opts.Namespace+":"+nsEntity),
		locker:   opts.Locker,
		enabled:  !opts.Disabled,
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.codec = opts.Codec
	if cc.codec == nil {
		cc.codec = c.JSON[any]{}
	}
	if opts.MaxValueSize > 0 {
		cc.codec = c.Limit[any]{Inner: cc.codec, Max: opts.MaxValueSize}
	}

	cc.rel = &relations{
		store: pr.Prefix(opts.Provider, opts.Namespace+":"+nsRelations),
		hooks: cc.hooks,
	}
	cc.scan = &scanner{store: cc.entities, get: cc.get}
	return cc, nil
}

func (cc *cache) Enabled() bool { return cc.enabled }

func (cc *cache) Close(ctx context.Context) error {
	var ce CloseError
	if cc.locker != nil {
		ce.LockerErr = cc.locker.Close(ctx)
	}
	if cc.provider != nil {
		ce.ProviderErr = cc.provider.Close(ctx)
	}
	if ce.ProviderErr != nil || ce.LockerErr != nil {
		return &ce
	}
	return nil
}

func (cc *cache) Get(ctx context.Context, key string) (any, bool, error) {
	if !cc.enabled {
		return nil, false, nil
	}
	return cc.get(ctx, key)
}

func (cc *cache) get(ctx context.Context, key string) (any, bool, error) {
	raw, ok, err := cc.entities.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("relcache: get %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	v, err := cc.codec.Decode(raw)
	if err != nil {
		cc.hooks.DecodeFailed(nsEntity, key, err)
		return nil, false, &DecodeError{Namespace: nsEntity, Key: key, Err: err}
	}
	return v, true, nil
}

// GetMany returns the values of keys that exist, in input order.
// Missing keys are skipped; the first error aborts the read.
func (cc *cache) GetMany(ctx context.Context, keys []string) ([]any, error) {
	if !cc.enabled {
		return []any{}, nil
	}
	return cc.getMany(ctx, keys)
}

func (cc *cache) getMany(ctx context.Context, keys []string) ([]any, error) {
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, ok, err := cc.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (cc *cache) Has(ctx context.Context, key string) (bool, error) {
	if !cc.enabled {
		return false, nil
	}
	ok, err := cc.entities.Has(ctx, key)
	if err != nil {
		return false, fmt.Errorf("relcache: has %q: %w", key, err)
	}
	return ok, nil
}

func (cc *cache) Set(ctx context.Context, key string, value any) error {
	if !cc.enabled {
		return nil
	}
	return cc.set(ctx, key, value)
}

func (cc *cache) set(ctx context.Context, key string, value any) error {
	raw, err := cc.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("relcache: encode %q: %w", key, err)
	}
	if err := cc.entities.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("relcache: set %q: %w", key, err)
	}
	return nil
}

// SetMany writes pairs in order and stops at the first failure; earlier
// pairs stay written.
func (cc *cache) SetMany(ctx context.Context, pairs []Pair) error {
	if !cc.enabled {
		return nil
	}
	for _, p := range pairs {
		if err := cc.set(ctx, p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (cc *cache) Remove(ctx context.Context, keys ...string) error {
	if !cc.enabled {
		return nil
	}
	for _, k := range keys {
		if err := cc.entities.Del(ctx, k); err != nil {
			return fmt.Errorf("relcache: remove %q: %w", k, err)
		}
	}
	return nil
}

// Flush clears every entity and every relationship of this namespace.
func (cc *cache) Flush(ctx context.Context) error {
	if !cc.enabled {
		return nil
	}
	if err := cc.entities.Clear(ctx); err != nil {
		return fmt.Errorf("relcache: flush entities: %w", err)
	}
	if err := cc.rel.store.Clear(ctx); err != nil {
		return fmt.Errorf("relcache: flush relationships: %w", err)
	}
	cc.log.Debug("flushed namespace", Fields{"ns": cc.ns})
	cc.hooks.Flushed()
	return nil
}

// withLock runs fn while holding the lock for lockKey when a Locker is
// configured. A failed release is reported but does not fail fn's result.
func (cc *cache) withLock(ctx context.Context, lockKey string, fn func() error) error {
	if cc.locker == nil {
		return fn()
	}
	release, err := cc.locker.Lock(ctx, lockKey)
	if err != nil {
		cc.hooks.LockFailed(lockKey, err)
		return fmt.Errorf("relcache: lock %q: %w", lockKey, err)
	}
	ferr := fn()
	if err := release(context.WithoutCancel(ctx)); err != nil {
		cc.log.Warn("lock release failed", Fields{"key": lockKey, "err": err})
		cc.hooks.LockFailed(lockKey, err)
	}
	return ferr
}

func entityLockKey(key string) string { return nsEntity + ":" + key }
func relLockKey(to string) string     { return nsRelations + ":" + to }
