package relcache

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/unkn0wn-root/relcache/internal/util"
	"github.com/unkn0wn-root/relcache/internal/wire"
	pr "github.com/unkn0wn-root/relcache/provider"
)

// relations is the relationship index: collection key -> ordered, unique
// member ids, stored in the <ns>:rel: namespace.
type relations struct {
	store pr.Provider
	hooks Hooks
}

// members returns the stored ids of to, or an empty slice when to has no entry.
func (r *relations) members(ctx context.Context, to string) ([]string, error) {
	raw, ok, err := r.store.Get(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("relcache: members %q: %w", to, err)
	}
	if !ok {
		return []string{}, nil
	}
	ids, err := wire.DecodeMembers(raw)
	if err != nil {
		r.hooks.DecodeFailed(nsRelations, to, err)
		return nil, &DecodeError{Namespace: nsRelations, Key: to, Err: err}
	}
	return ids, nil
}

func (r *relations) persist(ctx context.Context, to string, ids []string) error {
	if err := r.store.Set(ctx, to, wire.EncodeMembers(ids)); err != nil {
		return fmt.Errorf("relcache: persist members %q: %w", to, err)
	}
	return nil
}

// add appends ids not yet present, in first-occurrence order, and writes the
// full list back. A missing entry starts empty, so add always leaves an entry.
func (r *relations) add(ctx context.Context, to string, ids []string) error {
	cur, err := r.members(ctx, to)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(cur)+len(ids))
	for _, id := range cur {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cur = append(cur, id)
	}
	return r.persist(ctx, to, cur)
}

// remove drops the first occurrence of each id and writes the list back,
// even when to had no entry.
func (r *relations) remove(ctx context.Context, to string, ids []string) error {
	cur, err := r.members(ctx, to)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if i := slices.Index(cur, id); i >= 0 {
			cur = slices.Delete(cur, i, i+1)
		}
	}
	return r.persist(ctx, to, cur)
}

func (r *relations) drop(ctx context.Context, to []string) error {
	for _, k := range to {
		if err := r.store.Del(ctx, k); err != nil {
			return fmt.Errorf("relcache: remove relationship %q: %w", k, err)
		}
	}
	return nil
}

func (cc *cache) Members(ctx context.Context, to string) ([]string, error) {
	if !cc.enabled {
		return []string{}, nil
	}
	return cc.rel.members(ctx, to)
}

func (cc *cache) AddMembers(ctx context.Context, to string, ids ...string) error {
	if !cc.enabled {
		return nil
	}
	return cc.withLock(ctx, relLockKey(to), func() error {
		return cc.rel.add(ctx, to, ids)
	})
}

func (cc *cache) RemoveMembers(ctx context.Context, to string, ids ...string) error {
	if !cc.enabled {
		return nil
	}
	return cc.withLock(ctx, relLockKey(to), func() error {
		return cc.rel.remove(ctx, to, ids)
	})
}

func (cc *cache) RemoveRelationship(ctx context.Context, to ...string) error {
	if !cc.enabled {
		return nil
	}
	return cc.rel.drop(ctx, to)
}

// BulkAddMembers runs AddMembers for every collection, in key order so that
// a failure leaves a predictable prefix applied.
func (cc *cache) BulkAddMembers(ctx context.Context, rel map[string][]string) error {
	if !cc.enabled {
		return nil
	}
	tos := make([]string, 0, len(rel))
	for to := range rel {
		tos = append(tos, to)
	}
	sort.Strings(tos)
	for _, to := range tos {
		if err := cc.AddMembers(ctx, to, rel[to]...); err != nil {
			return err
		}
	}
	return nil
}

// Keys derives entity keys "<to>.<id>" from the members of to.
func (cc *cache) Keys(ctx context.Context, to string) ([]string, error) {
	ids, err := cc.Members(ctx, to)
	if err != nil {
		return nil, err
	}
	return util.MemberKeys(to, ids), nil
}

// Values reads the entities behind Keys(to). Members without a stored
// entity are skipped.
func (cc *cache) Values(ctx context.Context, to string) ([]any, error) {
	keys, err := cc.Keys(ctx, to)
	if err != nil {
		return nil, err
	}
	if !cc.enabled {
		return []any{}, nil
	}
	return cc.getMany(ctx, keys)
}

func (cc *cache) Count(ctx context.Context, to string) (int, error) {
	ids, err := cc.Members(ctx, to)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (cc *cache) Contains(ctx context.Context, to, id string) (bool, error) {
	ids, err := cc.Members(ctx, to)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}
