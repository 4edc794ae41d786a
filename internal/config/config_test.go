package config

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(flags(t))
	require.NoError(t, err)

	assert.Equal(t, "flashdeck.db", cfg.DB)
	assert.Equal(t, "flashcard-data", cfg.Key)
	assert.Equal(t, "localhost:8080", cfg.Addr)
	assert.Equal(t, Log{Level: "info", Format: "text"}, cfg.Log)
	assert.Equal(t, 36500, cfg.Scheduler.MaxDays)
	assert.Equal(t, 36500, cfg.Params().MaxInterval)
	assert.Equal(t, "**/*.md", cfg.Seed.Include)

	opts := cfg.StorageOptions()
	assert.Equal(t, "sqlite", opts.Kind)
	assert.Equal(t, "flashdeck.db", opts.Path)
	assert.Equal(t, "flashdeck:", opts.RedisPrefix)
}

func TestLoadRedisStore(t *testing.T) {
	t.Setenv("FLASHDECK_STORE", "redis")
	t.Setenv("FLASHDECK_REDIS_ADDR", "cache:6379")

	cfg, err := Load(flags(t, "--redis.db", "2"))
	require.NoError(t, err)

	opts := cfg.StorageOptions()
	assert.Equal(t, "redis", opts.Kind)
	assert.Equal(t, "cache:6379", opts.RedisAddr)
	assert.Equal(t, 2, opts.RedisDB)
}

func TestLoadWithoutFlags(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "flashdeck.db", cfg.DB)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db: from-file.db
addr: "0.0.0.0:9000"
log:
  level: debug
  format: json
seed:
  dir: decks
scheduler:
  maxdays: 365
`), 0o644))

	t.Setenv("FLASHDECK_LOG_LEVEL", "warn")
	t.Setenv("FLASHDECK_SEED_DIR", "env-decks")

	cfg, err := Load(flags(t, "--config", path, "--seed.dir", "flag-decks"))
	require.NoError(t, err)

	assert.Equal(t, "from-file.db", cfg.DB)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "flag-decks", cfg.Seed.Dir)
	assert.Equal(t, 365, cfg.Scheduler.MaxDays)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"level", []string{"--log.level", "loud"}},
		{"format", []string{"--log.format", "xml"}},
		{"addr", []string{"--addr", "nope"}},
		{"db", []string{"--db", ""}},
		{"maxdays", []string{"--scheduler.maxdays", "0"}},
		{"store", []string{"--store", "floppy"}},
		{"redis without addr", []string{"--store", "redis"}},
		{"redis addr", []string{"--store", "redis", "--redis.addr", "no port"}},
		{"include", []string{"--seed.include", "[unclosed"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(flags(t, tc.args...))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(flags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Log{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "v", rec["key"])

	text := NewLogger(Log{Level: "bogus", Format: "text"}, &buf)
	assert.True(t, text.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, text.Enabled(context.Background(), slog.LevelDebug))
}
