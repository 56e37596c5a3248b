// Package memory is an unbounded in-process Provider backed by a map.
// Suitable for tests and single-process deployments; nothing is evicted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	pr "github.com/unkn0wn-root/relcache/provider"
)

type Memory struct {
	mu     sync.RWMutex
	m      map[string][]byte
	closed bool
}

var (
	_ pr.Provider     = (*Memory)(nil)
	_ pr.PrefixLister = (*Memory)(nil)
)

func New() *Memory { return &Memory{m: make(map[string][]byte)} }

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, false, pr.ErrClosed
	}
	v, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return pr.ErrClosed
	}
	p.m[key] = append([]byte(nil), value...)
	return nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return pr.ErrClosed
	}
	delete(p.m, key)
	return nil
}

func (p *Memory) Has(_ context.Context, key string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, pr.ErrClosed
	}
	_, ok := p.m[key]
	return ok, nil
}

// Keys returns keys in ascending order.
func (p *Memory) Keys(ctx context.Context) ([]string, error) {
	return p.KeysWithPrefix(ctx, "")
}

func (p *Memory) KeysWithPrefix(_ context.Context, prefix string) ([]string, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, pr.ErrClosed
	}
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (p *Memory) Clear(ctx context.Context) error {
	return p.ClearPrefix(ctx, "")
}

func (p *Memory) ClearPrefix(_ context.Context, prefix string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return pr.ErrClosed
	}
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			delete(p.m, k)
		}
	}
	return nil
}

// Len reports the number of stored keys.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *Memory) Close(context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.m = nil
	p.mu.Unlock()
	return nil
}
