// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/relcache"
//	asynchook "github.com/unkn0wn-root/relcache/hooks/async"
//	"github.com/unkn0wn-root/relcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    PatchSkippedEvery:  10, // sample logs: ~every 10th skipped patch
//	    ScanCompletedEvery: 1,  // log every scan
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := relcache.New(relcache.Options{
//	    Namespace: "app:prod",
//	    Provider:  provider,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/relcache"
)

// Hooks forwards events to inner on background workers. Events are dropped
// when the queue is full.
type Hooks struct {
	inner   relcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ relcache.Hooks = (*Hooks)(nil)

func New(inner relcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events fired after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed queue
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) PatchSkipped(k string) { h.try(func() { h.inner.PatchSkipped(k) }) }
func (h *Hooks) Flushed()              { h.try(func() { h.inner.Flushed() }) }
func (h *Hooks) DecodeFailed(ns, k string, err error) {
	h.try(func() { h.inner.DecodeFailed(ns, k, err) })
}
func (h *Hooks) ScanCompleted(p string, scanned, matched int) {
	h.try(func() { h.inner.ScanCompleted(p, scanned, matched) })
}
func (h *Hooks) LockFailed(k string, err error) {
	h.try(func() { h.inner.LockFailed(k, err) })
}
