package ristretto

import (
	"context"
	"errors"
	"strings"
	"sync"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/relcache/provider"
)

// Provider adapts ristretto. Ristretto cannot enumerate its keys, so the
// provider keeps a key registry beside it. Entries ristretto evicted or
// dropped on admission are pruned from the registry lazily by Keys.
type Provider struct {
	c *rc.Cache

	mu   sync.Mutex
	keys map[string]struct{}
}

var (
	_ pr.Provider     = (*Provider)(nil)
	_ pr.PrefixLister = (*Provider)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, keys: make(map[string]struct{})}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set waits for the write buffer so the value is visible to the next Get.
// A write refused by the admission policy is not an error; it reads as a miss.
func (p *Provider) Set(_ context.Context, key string, value []byte) error {
	if p.c.Set(key, value, int64(len(value))) {
		p.c.Wait()
		p.mu.Lock()
		p.keys[key] = struct{}{}
		p.mu.Unlock()
	}
	return nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	p.c.Wait()
	p.mu.Lock()
	delete(p.keys, key)
	p.mu.Unlock()
	return nil
}

func (p *Provider) Has(_ context.Context, key string) (bool, error) {
	_, ok := p.c.Get(key)
	return ok, nil
}

func (p *Provider) Keys(ctx context.Context) ([]string, error) {
	return p.KeysWithPrefix(ctx, "")
}

func (p *Provider) KeysWithPrefix(_ context.Context, prefix string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.keys))
	for k := range p.keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := p.c.Get(k); !ok {
			delete(p.keys, k)
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (p *Provider) Clear(context.Context) error {
	p.c.Clear()
	p.mu.Lock()
	p.keys = make(map[string]struct{})
	p.mu.Unlock()
	return nil
}

func (p *Provider) ClearPrefix(ctx context.Context, prefix string) error {
	p.mu.Lock()
	var doomed []string
	for k := range p.keys {
		if strings.HasPrefix(k, prefix) {
			doomed = append(doomed, k)
		}
	}
	p.mu.Unlock()
	for _, k := range doomed {
		if err := p.Del(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
