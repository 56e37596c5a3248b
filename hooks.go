package relcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// An update-only patch found no existing value and wrote nothing.
	PatchSkipped(key string)

	// A stored value failed to decode. namespace ∈ {"entity", "rel"}.
	// The error is also returned to the caller.
	DecodeFailed(namespace, key string, err error)

	// A pattern scan finished. scanned is the number of keys listed.
	ScanCompleted(pattern string, scanned, matched int)

	// Both namespaces were cleared.
	Flushed()

	// Acquiring or releasing a per-key lock failed.
	LockFailed(key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) PatchSkipped(string)                {}
func (NopHooks) DecodeFailed(string, string, error) {}
func (NopHooks) ScanCompleted(string, int, int)     {}
func (NopHooks) Flushed()                           {}
func (NopHooks) LockFailed(string, error)           {}
