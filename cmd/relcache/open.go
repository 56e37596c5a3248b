package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/relcache"
	"github.com/unkn0wn-root/relcache/codec"
	"github.com/unkn0wn-root/relcache/internal/config"
	"github.com/unkn0wn-root/relcache/keylock"
	zaplog "github.com/unkn0wn-root/relcache/log/zap"
	pr "github.com/unkn0wn-root/relcache/provider"
	"github.com/unkn0wn-root/relcache/provider/bigcache"
	"github.com/unkn0wn-root/relcache/provider/dynamodb"
	"github.com/unkn0wn-root/relcache/provider/memory"
	"github.com/unkn0wn-root/relcache/provider/minio"
	"github.com/unkn0wn-root/relcache/provider/postgres"
	rdsprov "github.com/unkn0wn-root/relcache/provider/redis"
	"github.com/unkn0wn-root/relcache/provider/ristretto"
	"github.com/unkn0wn-root/relcache/provider/sqlite"
)

// open loads the configuration and builds the cache for this invocation.
// A cache that is already open (batch sub-commands) is reused.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	if a.cache != nil {
		return nil
	}
	switch cmd.Name() {
	case "help", "completion", "__complete":
		return nil
	}
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { _ = logger.Sync(); return nil })

	var rdb *goredis.Client
	if cfg.Driver == "redis" || cfg.Lock == "redis" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
	}

	p, err := openProvider(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	cd, err := codec.ByName(cfg.Codec)
	if err != nil {
		_ = p.Close(ctx)
		return err
	}

	opts := relcache.Options{
		Namespace:    cfg.Namespace,
		Provider:     p,
		Codec:        cd,
		MaxValueSize: cfg.MaxValueSize,
		Logger:       zaplog.New(logger),
	}
	switch cfg.Lock {
	case "local":
		opts.Locker = keylock.NewLocal()
	case "redis":
		opts.Locker = keylock.NewRedis(keylock.RedisConfig{Client: rdb, Namespace: cfg.Namespace})
	}

	c, err := relcache.New(opts)
	if err != nil {
		_ = p.Close(ctx)
		return err
	}
	a.cache = c
	logger.Debug("opened cache", zap.String("driver", cfg.Driver), zap.String("namespace", cfg.Namespace))
	return nil
}

func (a *app) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if a.cache != nil {
		err = a.cache.Close(ctx)
		a.cache = nil
	}
	// the redis client may be shared by provider and locker, so it is
	// closed here rather than by either of them
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// openProvider returns the unscoped store named by cfg.Driver. rdb is only
// used by the redis driver.
func openProvider(ctx context.Context, cfg config.Config, rdb goredis.UniversalClient) (pr.Provider, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "bigcache":
		return bigcache.New(bigcache.Config{})
	case "ristretto":
		return ristretto.New(ristretto.Config{NumCounters: 1e5, MaxCost: 64 << 20, BufferItems: 64})
	case "sqlite":
		return sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path, Table: cfg.SQLite.Table})
	case "postgres":
		return postgres.Open(ctx, postgres.Config{
			DSN:          cfg.Postgres.DSN,
			Table:        cfg.Postgres.Table,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
		})
	case "redis":
		return rdsprov.New(rdsprov.Config{Client: rdb, ScanCount: cfg.Redis.ScanCount})
	case "dynamodb":
		return dynamodb.Open(ctx, dynamodb.Config{
			Table:    cfg.DynamoDB.Table,
			Region:   cfg.DynamoDB.Region,
			Endpoint: cfg.DynamoDB.Endpoint,
		})
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:     cfg.Minio.Endpoint,
			AccessKey:    cfg.Minio.AccessKey,
			SecretKey:    cfg.Minio.SecretKey,
			Bucket:       cfg.Minio.Bucket,
			UseSSL:       cfg.Minio.UseSSL,
			Region:       cfg.Minio.Region,
			CreateBucket: cfg.Minio.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
