// Package keylock serializes read-modify-write sequences per key.
//
// relcache's composite operations (relationship add/remove, patch) read a
// value, change it and write it back. Without a Locker two concurrent
// mutators of the same key can lose an update. With one, the whole sequence
// for a key runs under its lock.
package keylock

import "context"

// Release gives a lock back. It must be called exactly once.
type Release func(ctx context.Context) error

// Locker abstracts where locks live.
// Use Local for a single process, or Redis to coordinate several processes.
type Locker interface {
	// Lock blocks until key is held or ctx is done.
	Lock(ctx context.Context, key string) (Release, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
