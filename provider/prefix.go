package provider

import (
	"context"
	"strings"
)

// Prefixed scopes a Provider to keys starting with a fixed prefix.
// Keys are returned without the prefix; Clear only touches the prefixed keys
// and Close is a no-op (the base provider is owned by whoever created it).
type Prefixed struct {
	base   Provider
	prefix string
}

var _ Provider = (*Prefixed)(nil)

// Prefix returns a view of p where every key is stored as base + ":" + key.
func Prefix(p Provider, base string) *Prefixed {
	if pp, ok := p.(*Prefixed); ok {
		return &Prefixed{base: pp.base, prefix: pp.prefix + base + ":"}
	}
	return &Prefixed{base: p, prefix: base + ":"}
}

// Base returns the unscoped provider.
func (p *Prefixed) Base() Provider { return p.base }

// KeyPrefix returns the full prefix applied to every key.
func (p *Prefixed) KeyPrefix() string { return p.prefix }

func (p *Prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.base.Get(ctx, p.prefix+key)
}

func (p *Prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.base.Set(ctx, p.prefix+key, value)
}

func (p *Prefixed) Del(ctx context.Context, key string) error {
	return p.base.Del(ctx, p.prefix+key)
}

func (p *Prefixed) Has(ctx context.Context, key string) (bool, error) {
	return p.base.Has(ctx, p.prefix+key)
}

func (p *Prefixed) Keys(ctx context.Context) ([]string, error) {
	var (
		all []string
		err error
	)
	if pl, ok := p.base.(PrefixLister); ok {
		all, err = pl.KeysWithPrefix(ctx, p.prefix)
	} else {
		all, err = p.base.Keys(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, p.prefix); ok {
			out = append(out, rest)
		}
	}
	return out, nil
}

func (p *Prefixed) Clear(ctx context.Context) error {
	if pl, ok := p.base.(PrefixLister); ok {
		return pl.ClearPrefix(ctx, p.prefix)
	}
	keys, err := p.base.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, p.prefix) {
			continue
		}
		if err := p.base.Del(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prefixed) Close(context.Context) error { return nil }
