package relcache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/unkn0wn-root/relcache/keylock"
	"github.com/unkn0wn-root/relcache/provider/memory"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing any
		update   any
		want     any
	}{
		{"record over record", map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3, "c": 4}, map[string]any{"a": 1, "b": 3, "c": 4}},
		{"nested record replaced", map[string]any{"n": map[string]any{"x": 1}}, map[string]any{"n": map[string]any{"y": 2}}, map[string]any{"n": map[string]any{"y": 2}}},
		{"record over nothing", nil, map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"record over scalar", "old", map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"record over sequence", []any{1}, map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"sequence replaces", []any{1, 2}, []any{3}, []any{3}},
		{"sequence over record", map[string]any{"a": 1}, []any{3}, []any{3}},
		{"scalar replaces record", map[string]any{"a": 1}, 7, 7},
		{"null replaces", map[string]any{"a": 1}, nil, nil},
		{"empty record keeps fields", map[string]any{"a": 1}, map[string]any{}, map[string]any{"a": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.existing, tt.update); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Merge = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMergeDoesNotMutate(t *testing.T) {
	existing := map[string]any{"a": 1}
	update := map[string]any{"b": 2}
	_ = Merge(existing, update)
	if len(existing) != 1 || len(update) != 1 {
		t.Fatalf("inputs mutated: %v %v", existing, update)
	}
}

func TestPatchUpdateOnlySkipsMissing(t *testing.T) {
	ctx := context.Background()
	h := &recHooks{}
	cc := newTestCache(t, "bot", memory.New(), func(o *Options) { o.Hooks = h })

	if err := cc.Patch(ctx, true, "user.1", map[string]any{"name": "x"}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if has, _ := cc.Has(ctx, "user.1"); has {
		t.Fatalf("update-only patch must not create the key")
	}
	if len(h.skipped) != 1 || h.skipped[0] != "user.1" {
		t.Fatalf("PatchSkipped = %v", h.skipped)
	}

	// A stored null counts as absent.
	_ = cc.Set(ctx, "user.2", nil)
	if err := cc.Patch(ctx, true, "user.2", map[string]any{"name": "x"}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if v, ok, _ := cc.Get(ctx, "user.2"); !ok || v != nil {
		t.Fatalf("null entry changed: %v %v", v, ok)
	}
}

func TestPatchUpdateOnlyFalsyIsPresent(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "bot", memory.New(), nil)

	_ = cc.Set(ctx, "flag", false)
	if err := cc.Patch(ctx, true, "flag", true); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if v, _, _ := cc.Get(ctx, "flag"); v != true {
		t.Fatalf("flag = %v, want true", v)
	}
}

func TestPatchCreatesAndMerges(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "bot", memory.New(), nil)

	if err := cc.Patch(ctx, false, "user.1", map[string]any{"id": "1", "name": "a"}); err != nil {
		t.Fatalf("Patch create: %v", err)
	}
	if err := cc.Patch(ctx, false, "user.1", map[string]any{"name": "b", "roles": []any{"x"}}); err != nil {
		t.Fatalf("Patch merge: %v", err)
	}
	got, _, _ := cc.Get(ctx, "user.1")
	want := map[string]any{"id": "1", "name": "b", "roles": []any{"x"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}

	// Sequences replace wholesale.
	if err := cc.Patch(ctx, true, "user.1", map[string]any{"roles": []any{"y", "z"}}); err != nil {
		t.Fatalf("Patch roles: %v", err)
	}
	got, _, _ = cc.Get(ctx, "user.1")
	if roles := got.(map[string]any)["roles"]; !reflect.DeepEqual(roles, []any{"y", "z"}) {
		t.Fatalf("roles = %#v", roles)
	}

	// Scalars replace the record.
	if err := cc.Patch(ctx, true, "user.1", "gone"); err != nil {
		t.Fatalf("Patch scalar: %v", err)
	}
	if got, _, _ := cc.Get(ctx, "user.1"); got != "gone" {
		t.Fatalf("got %#v", got)
	}
}

type userPatch struct {
	Name string `json:"name"`
}

func TestPatchTypedRecord(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "bot", memory.New(), nil)

	_ = cc.Set(ctx, "user.1", map[string]any{"id": "1", "name": "a"})
	if err := cc.Patch(ctx, true, "user.1", &userPatch{Name: "b"}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	got, _, _ := cc.Get(ctx, "user.1")
	want := map[string]any{"id": "1", "name": "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestPatchManyStopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	cc := newTestCache(t, "bot", mp, nil)

	_ = mp.Set(ctx, "bot:entity:bad", []byte("{"))
	err := cc.PatchMany(ctx, false, []Pair{
		{Key: "a", Value: map[string]any{"v": "1"}},
		{Key: "bad", Value: map[string]any{"v": "2"}},
		{Key: "c", Value: map[string]any{"v": "3"}},
	})
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if has, _ := cc.Has(ctx, "a"); !has {
		t.Fatalf("pairs before the failure stay written")
	}
	if has, _ := cc.Has(ctx, "c"); has {
		t.Fatalf("pairs after the failure must not run")
	}
}

func TestPatchConcurrentWithLocker(t *testing.T) {
	ctx := context.Background()
	lk := keylock.NewLocal()
	cc := newTestCache(t, "bot", memory.New(), func(o *Options) { o.Locker = lk })

	_ = cc.Set(ctx, "rec", map[string]any{})

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cc.Patch(ctx, true, "rec", map[string]any{fmt.Sprintf("f%d", i): "x"}); err != nil {
				t.Errorf("Patch: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _, _ := cc.Get(ctx, "rec")
	if m := got.(map[string]any); len(m) != n {
		t.Fatalf("lost updates: %d fields, want %d", len(m), n)
	}
	if lk.Len() != 0 {
		t.Fatalf("locks leaked: %d", lk.Len())
	}
}
