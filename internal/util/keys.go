package util

import "strings"

// Sep separates composite key segments.
const Sep = "."

// MemberKey returns the composite key of member id inside collection to.
// It assumes the flat one-level convention "<to>.<id>".
func MemberKey(to, id string) string {
	return to + Sep + id
}

// MemberKeys maps MemberKey over ids, preserving order.
func MemberKeys(to string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = MemberKey(to, id)
	}
	return out
}

// Segments splits a composite key on Sep. An empty key has one empty segment.
func Segments(key string) []string {
	return strings.Split(key, Sep)
}
