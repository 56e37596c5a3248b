// Package glog adapts github.com/golang/glog to relcache.Logger.
// Debug maps to verbosity level V, the other levels to glog severities.
package glog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/unkn0wn-root/relcache"
)

var _ relcache.Logger = Logger{}

// DefaultVerbosity is the -v level at which Debug messages appear.
const DefaultVerbosity glog.Level = 2

type Logger struct {
	V glog.Level // 0 => DefaultVerbosity
}

func (l Logger) Debug(msg string, f relcache.Fields) {
	v := l.V
	if v == 0 {
		v = DefaultVerbosity
	}
	if glog.V(v) {
		glog.InfoDepth(1, line(msg, f))
	}
}
func (Logger) Info(msg string, f relcache.Fields)  { glog.InfoDepth(1, line(msg, f)) }
func (Logger) Warn(msg string, f relcache.Fields)  { glog.WarningDepth(1, line(msg, f)) }
func (Logger) Error(msg string, f relcache.Fields) { glog.ErrorDepth(1, line(msg, f)) }

// line renders "msg k1=v1 k2=v2" with keys sorted.
func line(msg string, f relcache.Fields) string {
	if len(f) == 0 {
		return msg
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, f[k])
	}
	return b.String()
}
