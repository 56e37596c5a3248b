package relcache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/relcache/internal/pattern"
	pr "github.com/unkn0wn-root/relcache/provider"
)

// scanner matches entity keys against a wildcard pattern. Every scan lists
// the whole entity namespace, so cost grows with the number of stored keys.
type scanner struct {
	store pr.Provider
	get   func(ctx context.Context, key string) (any, bool, error)
}

// keys returns the matching keys in provider listing order and the number
// of keys that were listed.
func (s *scanner) keys(ctx context.Context, p pattern.Pattern) ([]string, int, error) {
	all, err := s.store.Keys(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("relcache: scan %q: %w", p, err)
	}
	out := make([]string, 0)
	for _, k := range all {
		if p.Match(k) {
			out = append(out, k)
		}
	}
	return out, len(all), nil
}

// values reads each matching key. A key deleted between listing and reading
// is skipped.
func (s *scanner) values(ctx context.Context, p pattern.Pattern) ([]any, int, error) {
	keys, scanned, err := s.keys(ctx, p)
	if err != nil {
		return nil, scanned, err
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, ok, err := s.get(ctx, k)
		if err != nil {
			return nil, scanned, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, scanned, nil
}

// Scan returns the values of every entity whose key matches pat.
// "*" stands for exactly one non-empty segment and the segment count must
// match, so "guild.*" never matches "guild.1.members".
func (cc *cache) Scan(ctx context.Context, pat string) ([]any, error) {
	if !cc.enabled {
		return []any{}, nil
	}
	p := pattern.Compile(pat)
	vals, scanned, err := cc.scan.values(ctx, p)
	if err != nil {
		return nil, err
	}
	cc.scanDone(p, scanned, len(vals))
	return vals, nil
}

// ScanKeys is Scan without reading values.
func (cc *cache) ScanKeys(ctx context.Context, pat string) ([]string, error) {
	if !cc.enabled {
		return []string{}, nil
	}
	p := pattern.Compile(pat)
	keys, scanned, err := cc.scan.keys(ctx, p)
	if err != nil {
		return nil, err
	}
	cc.scanDone(p, scanned, len(keys))
	return keys, nil
}

func (cc *cache) scanDone(p pattern.Pattern, scanned, matched int) {
	cc.log.Debug("scan completed", Fields{"pattern": p.String(), "scanned": scanned, "matched": matched})
	cc.hooks.ScanCompleted(p.String(), scanned, matched)
}
