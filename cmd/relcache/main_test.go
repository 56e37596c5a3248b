package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

// run executes one CLI invocation and returns its stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("relcache %v: %v", args, err)
	}
	return out
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("output %q is not JSON: %v", s, err)
	}
	return v
}

func TestSQLiteRoundTripAcrossInvocations(t *testing.T) {
	t.Chdir(t.TempDir())
	db := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--driver", "sqlite", "--sqlite-path", db, "--namespace", "bot"}
	with := func(args ...string) []string { return append(append([]string{}, args...), base...) }

	mustRun(t, with("set", "guild.1.members.7", `{"id":"7","name":"ada"}`)...)
	mustRun(t, with("patch", "--update-only", "guild.1.members.7", `{"name":"grace"}`)...)
	mustRun(t, with("patch", "--update-only", "guild.1.members.8", `{"name":"nobody"}`)...)
	mustRun(t, with("add", "guild.1.members", "7", "8", "7")...)

	got := decode(t, mustRun(t, with("get", "guild.1.members.7")...))
	rec, _ := got.(map[string]any)
	if rec["name"] != "grace" || rec["id"] != "7" {
		t.Fatalf("get = %v", got)
	}

	if _, err := run(t, "", with("get", "guild.1.members.8")...); !errors.Is(err, errNotFound) {
		t.Fatalf("update-only patch created a key, err=%v", err)
	}

	keys := decode(t, mustRun(t, with("scan", "--keys", "guild.*.members.*")...))
	if ks, _ := keys.([]any); len(ks) != 1 || ks[0] != "guild.1.members.7" {
		t.Fatalf("scan keys = %v", keys)
	}

	if n := decode(t, mustRun(t, with("count", "guild.1.members")...)); n != float64(2) {
		t.Fatalf("count = %v", n)
	}
	vals := decode(t, mustRun(t, with("values", "guild.1.members")...))
	if vs, _ := vals.([]any); len(vs) != 1 {
		t.Fatalf("values should drop the missing member, got %v", vals)
	}

	mustRun(t, with("flush")...)
	if n := decode(t, mustRun(t, with("count", "guild.1.members")...)); n != float64(0) {
		t.Fatalf("count after flush = %v", n)
	}
}

func TestBatchOnMemoryDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	script := `
# seed
["set", "g.1", "{\"n\":1}"]
["set", "g.2", "{\"n\":2}"]
["add", "g", "1", "2", "3"]
["del", "g", "2"]
["members", "g"]
["contains", "g", "3"]
`
	out, err := run(t, script, "--driver", "memory", "batch")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	dec := json.NewDecoder(strings.NewReader(out))
	var members []string
	if err := dec.Decode(&members); err != nil {
		t.Fatalf("decode members: %v (out=%q)", err, out)
	}
	if strings.Join(members, ",") != "1,3" {
		t.Fatalf("members = %v", members)
	}
	var contains bool
	if err := dec.Decode(&contains); err != nil || !contains {
		t.Fatalf("contains = %v, %v", contains, err)
	}
}

func TestBatchStopsOnError(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "[\"set\", \"k\", \"not json\"]\n[\"set\", \"k\", \"1\"]\n", "--driver", "memory", "batch")
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("want line 1 error, got %v", err)
	}

	_, err = run(t, "[\"nope\"]\n[\"set\", \"k\", \"1\"]\n", "--driver", "memory", "batch", "--keep-going")
	if err == nil || !strings.Contains(err.Error(), "1 line(s) failed") {
		t.Fatalf("want summary error, got %v", err)
	}
}

func TestUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := run(t, "", "--driver", "etcd", "count", "g"); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
