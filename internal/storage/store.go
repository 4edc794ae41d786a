package storage

import (
	"context"
	"fmt"
)

// Store is the key-value contract shared by every backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by OpenStore.
const (
	KindSQLite = "sqlite"
	KindRedis  = "redis"
	KindMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Kind        string
	Path        string // sqlite database file
	RedisAddr   string
	RedisDB     int
	RedisPrefix string
}

// OpenStore opens the backend named by opts.Kind.
func OpenStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case KindSQLite, "":
		db, err := Open(opts.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case KindRedis:
		r, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisDB, opts.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	case KindMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
}
