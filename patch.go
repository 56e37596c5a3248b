package relcache

import (
	"context"
	"fmt"
	"reflect"
)

// Merge combines an update with the existing value of an entity.
//
// A record update (map[string]any) is shallow-merged over an existing record:
// the result holds every existing field, with update's fields replacing
// them one level deep. Nested records are replaced, not merged. When the
// existing value is absent or not a record, the update's fields alone form
// the result. Any other update (sequence or scalar) replaces the existing
// value verbatim.
//
// Merge never mutates its arguments.
func Merge(existing, update any) any {
	upd, ok := update.(map[string]any)
	if !ok {
		return update
	}
	cur, _ := existing.(map[string]any)
	out := make(map[string]any, len(cur)+len(upd))
	for k, v := range cur {
		out[k] = v
	}
	for k, v := range upd {
		out[k] = v
	}
	return out
}

// Patch merges update into the value stored at key (see Merge) and writes
// the result. With updateOnly set, a key that has no stored value (or holds
// null) is left untouched and Patch returns nil.
//
// The read and the write are serialized per key when a Locker is configured.
func (cc *cache) Patch(ctx context.Context, updateOnly bool, key string, update any) error {
	if !cc.enabled {
		return nil
	}
	update, err := cc.normalize(key, update)
	if err != nil {
		return err
	}
	return cc.withLock(ctx, entityLockKey(key), func() error {
		return cc.patch(ctx, updateOnly, key, update)
	})
}

func (cc *cache) patch(ctx context.Context, updateOnly bool, key string, update any) error {
	existing, ok, err := cc.get(ctx, key)
	if err != nil {
		return err
	}
	if updateOnly && (!ok || existing == nil) {
		cc.log.Debug("patch skipped: no existing value", Fields{"key": key})
		cc.hooks.PatchSkipped(key)
		return nil
	}
	return cc.set(ctx, key, Merge(existing, update))
}

// PatchMany applies Patch to each pair in order and stops at the first error.
func (cc *cache) PatchMany(ctx context.Context, updateOnly bool, pairs []Pair) error {
	if !cc.enabled {
		return nil
	}
	for _, p := range pairs {
		if err := cc.Patch(ctx, updateOnly, p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// normalize turns typed records (structs, typed maps, pointers to them) into
// the untyped form the cache stores by running them through the codec, so
// Merge sees their fields.
func (cc *cache) normalize(key string, update any) (any, error) {
	switch update.(type) {
	case nil, map[string]any, []any:
		return update, nil
	}
	rv := reflect.ValueOf(update)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return update, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return update, nil
	}
	raw, err := cc.codec.Encode(update)
	if err != nil {
		return nil, fmt.Errorf("relcache: encode patch %q: %w", key, err)
	}
	v, err := cc.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("relcache: normalize patch %q: %w", key, err)
	}
	return v, nil
}
