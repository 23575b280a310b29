package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/data"
	"github.com/redis/go-redis/v9"
)

// Backend bundles the three cache roles served by one connection.
type Backend struct {
	Store  Store
	Ledger Ledger
	Locker Locker
	Close  func() error
}

// NewMemoryBackend returns a single process backend.
func NewMemoryBackend(lockTTL time.Duration, now Clock) *Backend {
	return &Backend{
		Store:  NewMemoryStore(now),
		Ledger: NewMemoryLedger(),
		Locker: NewMemoryLocker(lockTTL, now),
		Close:  func() error { return nil },
	}
}

// NewRedisBackend returns a backend sharing client between its roles.
// Close does not close the client.
func NewRedisBackend(client redis.UniversalClient, prefix string, lockTTL time.Duration) *Backend {
	return &Backend{
		Store:  NewRedisStore(client),
		Ledger: NewRedisLedger(client, prefix),
		Locker: NewRedisLocker(client, prefix, lockTTL),
		Close:  func() error { return nil },
	}
}

// Open builds the backend named by cfg.Metrics.Cache.Driver. The redis
// driver must be registered by importing github.com/ncobase/lamet/data/redis.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	cc := cfg.Metrics.Cache
	switch cc.Driver {
	case "", "memory":
		return NewMemoryBackend(cc.LockTTL, nil), nil
	case "redis":
	default:
		return nil, fmt.Errorf("cache: unsupported driver %q", cc.Driver)
	}

	driver, err := data.GetCacheDriver(cc.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.Data == nil || cfg.Data.Redis == nil {
		return nil, fmt.Errorf("cache: redis driver selected but data.redis is not configured")
	}
	conn, err := driver.Connect(ctx, cfg.Data.Redis)
	if err != nil {
		return nil, err
	}
	client, ok := conn.(redis.UniversalClient)
	if !ok {
		_ = driver.Close(conn)
		return nil, fmt.Errorf("cache: driver %q returned %T, want redis client", cc.Driver, conn)
	}

	backend := NewRedisBackend(client, cc.Prefix, cc.LockTTL)
	backend.Close = func() error { return driver.Close(conn) }
	return backend, nil
}
