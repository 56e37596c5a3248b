package pattern

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"a.*.c", "a.1.c", true},
		{"a.*.c", "a.2.c", true},
		{"a.*.c", "b.1.c", false},
		{"a.*", "a.1.c", false}, // fewer pattern segments
		{"a.*.c.*", "a.1.c", false},
		{"a.*.c", "a..c", false}, // wildcard needs a non-empty segment
		{"a..c", "a..c", true},   // literal empty segment
		{"*", "guild", true},
		{"*", "", false},
		{"", "", true},
		{"guild.1", "guild.1", true},
		{"guild.1", "guild.10", false},
		{"*.*", "x.y", true},
		{"*.*", "x.y.z", false},
		{"a.b*", "a.bc", false}, // no partial-segment globbing
	}
	for _, tc := range cases {
		if got := Compile(tc.pattern).Match(tc.key); got != tc.want {
			t.Fatalf("Compile(%q).Match(%q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	if !Compile("guild.1.members").Literal() {
		t.Fatalf("plain key should be literal")
	}
	if Compile("guild.*.members").Literal() {
		t.Fatalf("wildcard pattern reported literal")
	}
	if n := Compile("a.*.c").Segments(); n != 3 {
		t.Fatalf("Segments = %d", n)
	}
}
