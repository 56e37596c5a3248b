package main

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/relcache"
	"github.com/unkn0wn-root/relcache/internal/config"
)

var errNotFound = errors.New("not found")

// app carries state shared by every subcommand of one invocation.
type app struct {
	configPath string
	cfg        config.Config
	cache      relcache.Cache
	closers    []func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "relcache",
		Short: "Inspect and edit a relcache namespace",
		Long: `relcache reads and writes entities and relationships of one namespace
in a relcache store. Settings come from relcache.yaml, RELCACHE_* environment
variables and flags, in increasing precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: ./relcache.yaml when present)")
	pf.String("driver", "", "backend: memory, bigcache, ristretto, sqlite, postgres, redis, dynamodb, minio")
	pf.String("namespace", "", "cache namespace")
	pf.String("codec", "", "entity codec: json, cbor, msgpack, protobuf")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("lock", "", "per-key locking: none, local, redis")
	pf.String("sqlite-path", "", "sqlite database file")
	pf.String("postgres-dsn", "", "postgres connection string")
	pf.String("redis-addr", "", "redis host:port")
	pf.String("dynamodb-table", "", "dynamodb table name")
	pf.String("minio-bucket", "", "minio bucket name")

	addCommands(root, a)
	root.AddCommand(newBatchCmd(a))
	return root
}

func addCommands(parent *cobra.Command, a *app) {
	parent.AddCommand(
		newGetCmd(a),
		newMGetCmd(a),
		newSetCmd(a),
		newPatchCmd(a),
		newRmCmd(a),
		newScanCmd(a),
		newFlushCmd(a),
		newMembersCmd(a),
		newAddCmd(a),
		newDelCmd(a),
		newDropCmd(a),
		newCountCmd(a),
		newContainsCmd(a),
		newKeysCmd(a),
		newValuesCmd(a),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON value: %w", err)
	}
	return v, nil
}
