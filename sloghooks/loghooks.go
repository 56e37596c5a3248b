// Package sloghooks reports relcache hook events through log/slog.
package sloghooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/relcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	PatchSkippedEvery  uint64
	ScanCompletedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	skippedCtr atomic.Uint64
	scanCtr    atomic.Uint64
}

var _ relcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) PatchSkipped(key string) {
	if h.l == nil || !sample(h.opts.PatchSkippedEvery, &h.skippedCtr) {
		return
	}
	h.l.Debug("relcache.patch_skipped",
		"key", h.redact(key))
}

func (h *Hooks) DecodeFailed(ns, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("relcache.decode_failed",
		"ns", ns,
		"key", h.redact(key),
		"err", err)
}

// ScanCompleted logs at Info once a scan lists more than 10k keys, since
// every scan is linear in the namespace size.
func (h *Hooks) ScanCompleted(pattern string, scanned, matched int) {
	if h.l == nil || !sample(h.opts.ScanCompletedEvery, &h.scanCtr) {
		return
	}
	level := slog.LevelDebug
	if scanned > 10_000 {
		level = slog.LevelInfo
	}
	h.l.Log(context.Background(), level, "relcache.scan_completed",
		"pattern", pattern,
		"scanned", scanned,
		"matched", matched)
}

func (h *Hooks) Flushed() {
	if h.l == nil {
		return
	}
	h.l.Info("relcache.flushed")
}

func (h *Hooks) LockFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("relcache.lock_failed",
		"key", h.redact(key),
		"err", err)
}
