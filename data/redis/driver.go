// Package redis registers the Redis cache driver backing the shared
// aggregation buffer.
//
//	import _ "github.com/ncobase/lamet/data/redis"
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
	"github.com/redis/go-redis/v9"
)

type driver struct{}

func (d *driver) Name() string {
	return "redis"
}

// NewClient builds a client from configuration without connecting. The
// concrete type follows the addresses: single node, cluster or sentinel.
func NewClient(cfg *config.Redis) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   cfg.MasterName,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		DialTimeout:  cfg.DialTimeout,
	})
}

func (d *driver) Connect(ctx context.Context, cfg any) (any, error) {
	redisCfg, ok := cfg.(*config.Redis)
	if !ok {
		return nil, fmt.Errorf("redis: invalid configuration type %T, expected *config.Redis", cfg)
	}
	if len(redisCfg.Addrs) == 0 {
		return nil, errors.New("redis: no address configured")
	}

	client := NewClient(redisCfg)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping %v: %w", redisCfg.Addrs, err)
	}
	return client, nil
}

func client(conn any) (redis.UniversalClient, error) {
	c, ok := conn.(redis.UniversalClient)
	if !ok {
		return nil, fmt.Errorf("redis: invalid connection type %T", conn)
	}
	return c, nil
}

func (d *driver) Close(conn any) error {
	c, err := client(conn)
	if err != nil {
		return err
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("redis: failed to close connection: %w", err)
	}
	return nil
}

func (d *driver) Ping(ctx context.Context, conn any) error {
	c, err := client(conn)
	if err != nil {
		return err
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}

func init() {
	data.RegisterCacheDriver(&driver{})
}
