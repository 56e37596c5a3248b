package glog

import (
	"testing"

	"github.com/unkn0wn-root/relcache"
)

func TestLineSortsFields(t *testing.T) {
	got := line("scan completed", relcache.Fields{"scanned": 10, "matched": 2, "pattern": "g.*"})
	want := "scan completed matched=2 pattern=g.* scanned=10"
	if got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
	if got := line("flushed", nil); got != "flushed" {
		t.Fatalf("line = %q", got)
	}
}
