package relcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	c "github.com/unkn0wn-root/relcache/codec"
	"github.com/unkn0wn-root/relcache/keylock"
	pr "github.com/unkn0wn-root/relcache/provider"
	"github.com/unkn0wn-root/relcache/provider/memory"
)

var errBoom = errors.New("boom")

// recHooks records hook calls.
type recHooks struct {
	mu       sync.Mutex
	skipped  []string
	decode   []string // "<namespace>/<key>"
	scans    int
	flushed  int
	lockErrs int
}

func (h *recHooks) PatchSkipped(key string) {
	h.mu.Lock()
	h.skipped = append(h.skipped, key)
	h.mu.Unlock()
}

func (h *recHooks) DecodeFailed(ns, key string, _ error) {
	h.mu.Lock()
	h.decode = append(h.decode, ns+"/"+key)
	h.mu.Unlock()
}

func (h *recHooks) ScanCompleted(string, int, int) {
	h.mu.Lock()
	h.scans++
	h.mu.Unlock()
}

func (h *recHooks) Flushed() {
	h.mu.Lock()
	h.flushed++
	h.mu.Unlock()
}

func (h *recHooks) LockFailed(string, error) {
	h.mu.Lock()
	h.lockErrs++
	h.mu.Unlock()
}

// failProvider fails every call after fail is set.
type failProvider struct {
	*memory.Memory
	fail     bool
	closeErr error
}

var _ pr.Provider = (*failProvider)(nil)

func (p *failProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if p.fail {
		return nil, false, errBoom
	}
	return p.Memory.Get(ctx, key)
}

func (p *failProvider) Set(ctx context.Context, key string, v []byte) error {
	if p.fail {
		return errBoom
	}
	return p.Memory.Set(ctx, key, v)
}

func (p *failProvider) Keys(ctx context.Context) ([]string, error) {
	if p.fail {
		return nil, errBoom
	}
	return p.Memory.Keys(ctx)
}

func (p *failProvider) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if p.fail {
		return nil, errBoom
	}
	return p.Memory.KeysWithPrefix(ctx, prefix)
}

func (p *failProvider) Close(context.Context) error { return p.closeErr }

func newTestCache(t *testing.T, ns string, p pr.Provider, optsOpt func(*Options)) Cache {
	t.Helper()
	opts := Options{Namespace: ns, Provider: p}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cc, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{Namespace: "x"}); !errors.Is(err, ErrNilProvider) {
		t.Fatalf("want ErrNilProvider, got %v", err)
	}
	if _, err := New(Options{Provider: memory.New()}); !errors.Is(err, ErrNamespace) {
		t.Fatalf("want ErrNamespace, got %v", err)
	}
}

func TestEntityRoundTrip(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "bot", memory.New(), nil)

	if _, ok, err := cc.Get(ctx, "user.1"); err != nil || ok {
		t.Fatalf("miss expected, ok=%v err=%v", ok, err)
	}

	want := map[string]any{"id": "1", "name": "Ada", "tags": []any{"a", "b"}}
	if err := cc.Set(ctx, "user.1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cc.Get(ctx, "user.1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Get = %#v, want %#v", got, want)
	}
	if has, _ := cc.Has(ctx, "user.1"); !has {
		t.Fatalf("Has should be true")
	}

	if err := cc.Remove(ctx, "user.1", "user.404"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if has, _ := cc.Has(ctx, "user.1"); has {
		t.Fatalf("Has should be false after Remove")
	}
}

func TestGetManyDropsMisses(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "bot", memory.New(), nil)

	if err := cc.SetMany(ctx, []Pair{
		{Key: "a", Value: "A"},
		{Key: "c", Value: "C"},
		{Key: "zero", Value: 0.0},
		{Key: "no", Value: false},
		{Key: "empty", Value: ""},
	}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	got, err := cc.GetMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"A", "C"}) {
		t.Fatalf("GetMany = %#v", got)
	}

	// Falsy values are present, not misses.
	got, err = cc.GetMany(ctx, []string{"zero", "missing", "no", "empty"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if !reflect.DeepEqual(got, []any{0.0, false, ""}) {
		t.Fatalf("GetMany falsy = %#v", got)
	}

	got, err = cc.GetMany(ctx, nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("GetMany(nil) = %#v, %v", got, err)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	a := newTestCache(t, "a", mp, nil)
	b := newTestCache(t, "b", mp, nil)

	_ = a.Set(ctx, "k", "from-a")
	_ = b.Set(ctx, "k", "from-b")
	_ = a.AddMembers(ctx, "g", "1")

	if v, _, _ := a.Get(ctx, "k"); v != "from-a" {
		t.Fatalf("a.k = %v", v)
	}
	if v, _, _ := b.Get(ctx, "k"); v != "from-b" {
		t.Fatalf("b.k = %v", v)
	}
	if n, _ := b.Count(ctx, "g"); n != 0 {
		t.Fatalf("b should not see a's relationships, count=%d", n)
	}

	// Raw layout: <ns>:entity:<key> and <ns>:rel:<to>.
	for _, k := range []string{"a:entity:k", "b:entity:k", "a:rel:g"} {
		if ok, _ := mp.Has(ctx, k); !ok {
			t.Fatalf("expected raw key %q", k)
		}
	}
}

func TestFlushClearsOnlyOwnNamespace(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	h := &recHooks{}
	a := newTestCache(t, "a", mp, func(o *Options) { o.Hooks = h })
	b := newTestCache(t, "b", mp, nil)

	_ = a.Set(ctx, "g.1", "x")
	_ = a.AddMembers(ctx, "g", "1")
	_ = b.Set(ctx, "g.1", "y")
	_ = b.AddMembers(ctx, "g", "1")

	if err := a.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, ok, _ := a.Get(ctx, "g.1"); ok {
		t.Fatalf("entity should be flushed")
	}
	if m, _ := a.Members(ctx, "g"); len(m) != 0 {
		t.Fatalf("relationships should be flushed, got %v", m)
	}
	if v, ok, _ := b.Get(ctx, "g.1"); !ok || v != "y" {
		t.Fatalf("other namespace lost its entity: %v %v", v, ok)
	}
	if m, _ := b.Members(ctx, "g"); len(m) != 1 {
		t.Fatalf("other namespace lost its relationships: %v", m)
	}
	if h.flushed != 1 {
		t.Fatalf("Flushed hook calls = %d", h.flushed)
	}
}

func TestDecodeErrorEntity(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	h := &recHooks{}
	cc := newTestCache(t, "bot", mp, func(o *Options) { o.Hooks = h })

	_ = mp.Set(ctx, "bot:entity:bad", []byte("{not json"))

	_, _, err := cc.Get(ctx, "bad")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("want *DecodeError, got %v", err)
	}
	if de.Namespace != "entity" || de.Key != "bad" {
		t.Fatalf("DecodeError = %+v", de)
	}
	if len(h.decode) != 1 || h.decode[0] != "entity/bad" {
		t.Fatalf("DecodeFailed hook = %v", h.decode)
	}

	// Multi-key reads abort on the first failure.
	_ = cc.Set(ctx, "good", "ok")
	if _, err := cc.GetMany(ctx, []string{"good", "bad"}); !errors.As(err, &de) {
		t.Fatalf("GetMany should surface the decode error, got %v", err)
	}
}

func TestDecodeErrorRelationship(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	cc := newTestCache(t, "bot", mp, nil)

	_ = mp.Set(ctx, "bot:rel:g", []byte("garbage"))

	_, err := cc.Members(ctx, "g")
	var de *DecodeError
	if !errors.As(err, &de) || de.Namespace != "rel" || de.Key != "g" {
		t.Fatalf("want rel DecodeError, got %v", err)
	}
	if err := cc.AddMembers(ctx, "g", "1"); !errors.As(err, &de) {
		t.Fatalf("AddMembers over a corrupt list must fail, got %v", err)
	}
}

func TestProviderErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	fp := &failProvider{Memory: memory.New()}
	cc := newTestCache(t, "bot", fp, nil)
	fp.fail = true

	if _, _, err := cc.Get(ctx, "k"); !errors.Is(err, errBoom) {
		t.Fatalf("Get err = %v", err)
	}
	if err := cc.Set(ctx, "k", 1); !errors.Is(err, errBoom) {
		t.Fatalf("Set err = %v", err)
	}
	if _, err := cc.Scan(ctx, "*"); !errors.Is(err, errBoom) {
		t.Fatalf("Scan err = %v", err)
	}
	if err := cc.AddMembers(ctx, "g", "1"); !errors.Is(err, errBoom) {
		t.Fatalf("AddMembers err = %v", err)
	}
	if err := cc.Patch(ctx, false, "k", map[string]any{"a": 1}); !errors.Is(err, errBoom) {
		t.Fatalf("Patch err = %v", err)
	}
}

func TestDisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	cc := newTestCache(t, "bot", mp, func(o *Options) { o.Disabled = true })

	if cc.Enabled() {
		t.Fatalf("Enabled should be false")
	}
	_ = cc.Set(ctx, "k", "v")
	_ = cc.AddMembers(ctx, "g", "1")
	_ = cc.Patch(ctx, false, "p", map[string]any{"a": "b"})
	if mp.Len() != 0 {
		t.Fatalf("disabled cache wrote %d keys", mp.Len())
	}
	if _, ok, err := cc.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("Get on disabled: ok=%v err=%v", ok, err)
	}
	if m, err := cc.Members(ctx, "g"); err != nil || m == nil || len(m) != 0 {
		t.Fatalf("Members on disabled = %#v, %v", m, err)
	}
	if v, err := cc.Values(ctx, "g"); err != nil || len(v) != 0 {
		t.Fatalf("Values on disabled = %#v, %v", v, err)
	}
}

func TestMaxValueSize(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "bot", memory.New(), func(o *Options) { o.MaxValueSize = 16 })

	if err := cc.Set(ctx, "small", "ok"); err != nil {
		t.Fatalf("small Set: %v", err)
	}
	err := cc.Set(ctx, "big", strings.Repeat("x", 64))
	if !errors.Is(err, c.ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestCodecsKeepRecordsMergeable(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"json", "cbor", "msgpack", "protobuf"} {
		t.Run(name, func(t *testing.T) {
			codec, err := c.ByName(name)
			if err != nil {
				t.Fatalf("ByName: %v", err)
			}
			cc := newTestCache(t, "bot", memory.New(), func(o *Options) { o.Codec = codec })

			_ = cc.Set(ctx, "u", map[string]any{"id": "1", "name": "a"})
			if err := cc.Patch(ctx, true, "u", map[string]any{"name": "b"}); err != nil {
				t.Fatalf("Patch: %v", err)
			}
			got, _, err := cc.Get(ctx, "u")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			want := map[string]any{"id": "1", "name": "b"}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %#v, want %#v", got, want)
			}
		})
	}
}

func TestCloseJoinsErrors(t *testing.T) {
	ctx := context.Background()
	errLock := errors.New("lock close")
	fp := &failProvider{Memory: memory.New(), closeErr: errBoom}
	cc := newTestCache(t, "bot", fp, func(o *Options) { o.Locker = closeErrLocker{keylock.NewLocal(), errLock} })

	err := cc.Close(ctx)
	var ce *CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("want *CloseError, got %v", err)
	}
	if !errors.Is(err, errBoom) || !errors.Is(err, errLock) {
		t.Fatalf("CloseError should wrap both, got %v", err)
	}

	ok := newTestCache(t, "bot", memory.New(), nil)
	if err := ok.Close(ctx); err != nil {
		t.Fatalf("clean Close: %v", err)
	}
}

type closeErrLocker struct {
	*keylock.Local
	err error
}

func (l closeErrLocker) Close(context.Context) error { return l.err }
