// Package config loads relcache CLI settings from a YAML file, RELCACHE_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	c "github.com/unkn0wn-root/relcache/codec"
)

const (
	EnvPrefix       = "RELCACHE"
	DefaultFileName = "relcache" // relcache.yaml in the working directory
)

// Drivers lists the provider backends the CLI can open.
// memory, bigcache and ristretto live only as long as the process, which
// makes them useful with the batch command.
var Drivers = []string{"memory", "bigcache", "ristretto", "sqlite", "postgres", "redis", "dynamodb", "minio"}

// Lockers lists the accepted values of Config.Lock.
var Lockers = []string{"none", "local", "redis"}

type Config struct {
	Driver       string `mapstructure:"driver"`
	Namespace    string `mapstructure:"namespace"`
	Codec        string `mapstructure:"codec"`
	MaxValueSize int    `mapstructure:"max_value_size"`
	LogLevel     string `mapstructure:"log_level"`
	Lock         string `mapstructure:"lock"`

	SQLite   SQLite   `mapstructure:"sqlite"`
	Postgres Postgres `mapstructure:"postgres"`
	Redis    Redis    `mapstructure:"redis"`
	DynamoDB DynamoDB `mapstructure:"dynamodb"`
	Minio    Minio    `mapstructure:"minio"`
}

type SQLite struct {
	Path  string `mapstructure:"path"`
	Table string `mapstructure:"table"`
}

type Postgres struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type Redis struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	ScanCount int64  `mapstructure:"scan_count"`
}

type DynamoDB struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type Minio struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// Every key needs a default so AutomaticEnv can see it during Unmarshal.
var defaults = map[string]any{
	"driver":                  "sqlite",
	"namespace":               "relcache",
	"codec":                   "json",
	"max_value_size":          0,
	"log_level":               "warn",
	"lock":                    "none",
	"sqlite.path":             "relcache.db",
	"sqlite.table":            "",
	"postgres.dsn":            "",
	"postgres.table":          "",
	"postgres.max_open_conns": 0,
	"redis.addr":              "localhost:6379",
	"redis.password":          "",
	"redis.db":                0,
	"redis.scan_count":        0,
	"dynamodb.table":          "",
	"dynamodb.region":         "",
	"dynamodb.endpoint":       "",
	"minio.endpoint":          "localhost:9000",
	"minio.access_key":        "",
	"minio.secret_key":        "",
	"minio.bucket":            "",
	"minio.use_ssl":           false,
	"minio.region":            "",
	"minio.create_bucket":     false,
}

// FlagKeys maps CLI flag names to config keys.
var FlagKeys = map[string]string{
	"driver":         "driver",
	"namespace":      "namespace",
	"codec":          "codec",
	"log-level":      "log_level",
	"lock":           "lock",
	"sqlite-path":    "sqlite.path",
	"postgres-dsn":   "postgres.dsn",
	"redis-addr":     "redis.addr",
	"dynamodb-table": "dynamodb.table",
	"minio-bucket":   "minio.bucket",
}

// Load reads path (or ./relcache.yaml when path is empty and the file
// exists), then environment, then any flags in fs that were set.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	if fs != nil {
		for name, key := range FlagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if !slices.Contains(Drivers, cfg.Driver) {
		return fmt.Errorf("config: unknown driver %q (want one of %s)", cfg.Driver, strings.Join(Drivers, ", "))
	}
	if cfg.Namespace == "" {
		return errors.New("config: namespace is required")
	}
	if _, err := c.ByName(cfg.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !slices.Contains(Lockers, cfg.Lock) {
		return fmt.Errorf("config: unknown lock %q (want one of %s)", cfg.Lock, strings.Join(Lockers, ", "))
	}
	switch cfg.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required")
		}
	case "dynamodb":
		if cfg.DynamoDB.Table == "" {
			return errors.New("config: dynamodb.table is required")
		}
	case "minio":
		if cfg.Minio.Bucket == "" {
			return errors.New("config: minio.bucket is required")
		}
	}
	return nil
}
