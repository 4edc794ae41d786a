// Package config loads flashdeck settings from defaults, an optional YAML
// file, FLASHDECK_ environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/flashdeck/internal/persist"
	"github.com/conorfennell/flashdeck/internal/scheduler"
	"github.com/conorfennell/flashdeck/internal/storage"
)

// EnvPrefix marks the environment variables Load reads. FLASHDECK_LOG_LEVEL
// sets log.level.
const EnvPrefix = "FLASHDECK_"

type Config struct {
	Store     string    `koanf:"store" validate:"oneof=sqlite redis memory"`
	DB        string    `koanf:"db" validate:"required_if=Store sqlite"`
	Redis     Redis     `koanf:"redis"`
	Key       string    `koanf:"key" validate:"required"`
	Addr      string    `koanf:"addr" validate:"required,hostname_port"`
	Log       Log       `koanf:"log"`
	Seed      Seed      `koanf:"seed"`
	Scheduler Scheduler `koanf:"scheduler"`
}

type Redis struct {
	Addr   string `koanf:"addr" validate:"omitempty,hostname_port"`
	DB     int    `koanf:"db" validate:"gte=0"`
	Prefix string `koanf:"prefix"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Seed says where a new deck gets its first cards. Git takes a repository URL
// that is cloned into Cache; Dir is then a path inside the checkout.
type Seed struct {
	Dir     string `koanf:"dir"`
	Git     string `koanf:"git"`
	Cache   string `koanf:"cache" validate:"required_with=Git"`
	Include string `koanf:"include" validate:"required"`
}

type Scheduler struct {
	MaxDays int `koanf:"maxdays" validate:"gte=1"`
}

// Params returns the scheduler parameters with the configured interval cap.
func (c Config) Params() scheduler.Params {
	p := scheduler.DefaultParams()
	p.MaxInterval = c.Scheduler.MaxDays
	return p
}

var defaults = map[string]any{
	"store":             "sqlite",
	"db":                "flashdeck.db",
	"redis.addr":        "",
	"redis.db":          0,
	"redis.prefix":      "flashdeck:",
	"key":               persist.DefaultKey,
	"addr":              "localhost:8080",
	"log.level":         "info",
	"log.format":        "text",
	"seed.dir":          "",
	"seed.git":          "",
	"seed.cache":        ".flashdeck/repos",
	"seed.include":      "**/*.md",
	"scheduler.maxdays": scheduler.DefaultParams().MaxInterval,
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("store", defaults["store"].(string), "Storage backend: sqlite, redis or memory")
	fs.String("db", defaults["db"].(string), "Path to the SQLite database file")
	fs.String("redis.addr", "", "Redis server address, for the redis backend")
	fs.Int("redis.db", 0, "Redis database number")
	fs.String("redis.prefix", defaults["redis.prefix"].(string), "Prefix for keys written to Redis")
	fs.String("key", defaults["key"].(string), "Storage key the deck snapshot is kept under")
	fs.String("addr", defaults["addr"].(string), "Listen address for the HTTP API")
	fs.String("log.level", defaults["log.level"].(string), "Log level: debug, info, warn or error")
	fs.String("log.format", defaults["log.format"].(string), "Log format: text or json")
	fs.String("seed.dir", "", "Directory of markdown decks used to seed an empty store")
	fs.String("seed.git", "", "Git repository of markdown decks used to seed an empty store")
	fs.String("seed.cache", defaults["seed.cache"].(string), "Directory git seed repositories are cloned into")
	fs.String("seed.include", defaults["seed.include"].(string), "Glob, relative to the seed directory, of the files to read")
	fs.Int("scheduler.maxdays", defaults["scheduler.maxdays"].(int), "Longest interval, in days, a card can be scheduled out")
}

// Load builds the configuration. fs must have been set up with RegisterFlags
// and parsed; it may be nil to skip flags entirely.
func Load(fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	// Flags the user did not set keep the values loaded so far.
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store == storage.KindRedis && c.Redis.Addr == "" {
		return errors.New("invalid configuration: redis.addr is required for the redis store")
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !doublestar.ValidatePattern(c.Seed.Include) {
		return fmt.Errorf("invalid configuration: bad seed.include pattern %q", c.Seed.Include)
	}
	return nil
}

// StorageOptions returns the options for storage.OpenStore.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:        c.Store,
		Path:        c.DB,
		RedisAddr:   c.Redis.Addr,
		RedisDB:     c.Redis.DB,
		RedisPrefix: c.Redis.Prefix,
	}
}
