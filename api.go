package relcache

import (
	"context"

	c "github.com/unkn0wn-root/relcache/codec"
	"github.com/unkn0wn-root/relcache/keylock"
	pr "github.com/unkn0wn-root/relcache/provider"
)

// Pair is one key/value entry for the batch forms of Set and Patch.
type Pair struct {
	Key   string
	Value any
}

// Cache is the entity cache with relationship tracking.
//
// Values are untyped: records are map[string]any, sequences []any, anything
// else a scalar. Multi-value reads (GetMany, Values, Scan) drop keys that have
// no stored value; they never return nil placeholders.
type Cache interface {
	Enabled() bool
	Close(context.Context) error

	// Entities
	Get(ctx context.Context, key string) (v any, ok bool, err error)
	GetMany(ctx context.Context, keys []string) ([]any, error)
	Has(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value any) error
	SetMany(ctx context.Context, pairs []Pair) error
	Patch(ctx context.Context, updateOnly bool, key string, update any) error
	PatchMany(ctx context.Context, updateOnly bool, pairs []Pair) error
	Remove(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error

	// Pattern scan over every entity key (linear in the number of keys)
	Scan(ctx context.Context, pattern string) ([]any, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Relationships
	Members(ctx context.Context, to string) ([]string, error)
	AddMembers(ctx context.Context, to string, ids ...string) error
	RemoveMembers(ctx context.Context, to string, ids ...string) error
	RemoveRelationship(ctx context.Context, to ...string) error
	BulkAddMembers(ctx context.Context, rel map[string][]string) error

	// Collection views derived from relationships
	Keys(ctx context.Context, to string) ([]string, error)
	Values(ctx context.Context, to string) ([]any, error)
	Count(ctx context.Context, to string) (int, error)
	Contains(ctx context.Context, to, id string) (bool, error)
}

// Options configure a Cache.
// Only Namespace and Provider are required; others have sensible defaults.
type Options struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "bot", "app:prod"
	Provider  pr.Provider

	Codec        c.Codec[any]   // nil => codec.JSON
	MaxValueSize int            // bytes; > 0 wraps Codec in codec.Limit
	Logger       Logger         // if nil, NopLogger is used
	Hooks        Hooks          // if nil, NopHooks is used
	Locker       keylock.Locker // nil => read-modify-write sequences are not serialized
	Disabled     bool           // default false (enabled)
}

func New(opts Options) (Cache, error) {
	return newCache(opts)
}
