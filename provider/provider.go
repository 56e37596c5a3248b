// Package provider defines the storage abstraction used by relcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed so that the bytes returned by
// Get are identical to the bytes provided to Set.
//
// relcache keeps entities and relationship entries in two namespaces of one
// Provider, built with Prefix. External code MUST NOT write under those prefixes.
package provider

import (
	"context"
	"errors"
)

// ErrClosed is returned by in-process providers after Close.
var ErrClosed = errors.New("provider: closed")

// Provider is a minimal byte store that can enumerate its keys.
// Must be safe for concurrent use per individual operation.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Has reports whether key is present.
	Has(ctx context.Context, key string) (bool, error)

	// Keys lists every key currently stored.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// PrefixLister is implemented by stores that can filter by key prefix
// server-side. Prefix uses it when available instead of listing everything.
type PrefixLister interface {
	KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
	ClearPrefix(ctx context.Context, prefix string) error
}
