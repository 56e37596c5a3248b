// Package pattern matches dot-segmented composite keys against wildcard
// patterns such as "guild.*.members.*".
//
// A key matches when it has exactly as many segments as the pattern and each
// pattern segment is either "*" (any non-empty segment) or equal to the key
// segment. There is no multi-segment wildcard and no partial-segment globbing.
package pattern

import (
	"strings"

	"github.com/unkn0wn-root/relcache/internal/util"
)

// Wildcard matches exactly one non-empty segment.
const Wildcard = "*"

type Pattern struct {
	raw  string
	segs []string
}

// Compile splits p into segments. Every string is a valid pattern.
func Compile(p string) Pattern {
	return Pattern{raw: p, segs: util.Segments(p)}
}

func (p Pattern) String() string { return p.raw }

// Segments reports the number of segments a matching key must have.
func (p Pattern) Segments() int { return len(p.segs) }

// Literal reports whether the pattern has no wildcard segment.
func (p Pattern) Literal() bool {
	for _, s := range p.segs {
		if s == Wildcard {
			return false
		}
	}
	return true
}

// Match reports whether key matches the pattern. It walks the key without
// allocating a segment slice.
func (p Pattern) Match(key string) bool {
	rest := key
	for i, ps := range p.segs {
		var seg string
		last := i == len(p.segs)-1
		if last {
			if strings.Contains(rest, util.Sep) {
				return false // key has more segments
			}
			seg = rest
		} else {
			j := strings.Index(rest, util.Sep)
			if j < 0 {
				return false // key has fewer segments
			}
			seg, rest = rest[:j], rest[j+len(util.Sep):]
		}
		if ps == Wildcard {
			if seg == "" {
				return false
			}
			continue
		}
		if ps != seg {
			return false
		}
	}
	return true
}
